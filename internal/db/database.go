package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/runesbridge/runes-bridge/internal/config"
	"github.com/runesbridge/runes-bridge/internal/db/migrations"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sqliteFileName = "runes_bridge.db"

type DatabaseManager struct {
	db *gorm.DB
}

// NewDatabaseManager opens the configured database and brings its schema up to date.
func NewDatabaseManager(cfg config.Config) (*DatabaseManager, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DBDriverPostgres:
		dialector = postgres.Open(cfg.DbDSN)
	default:
		if err := os.MkdirAll(cfg.DbDir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
		dialector = sqlite.Open(filepath.Join(cfg.DbDir, sqliteFileName))
	}
	return Open(dialector)
}

// Open connects with an explicit dialector and migrates the schema.
func Open(dialector gorm.Dialector) (*DatabaseManager, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}
	log.Debugf("Database connected successfully, dialect: %s", dialector.Name())

	dm := &DatabaseManager{db: gdb}
	if err := dm.migrate(); err != nil {
		return nil, err
	}
	log.Debugf("Database migration completed successfully")
	return dm, nil
}

func (dm *DatabaseManager) GetDB() *gorm.DB {
	return dm.db
}

func (dm *DatabaseManager) Close() error {
	sqlDB, err := dm.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (dm *DatabaseManager) migrate() error {
	if err := dm.db.AutoMigrate(
		&DepositAddress{},
		&SupportedRune{},
		&ClaimedDeposit{},
		&DepositClaimTx{},
		&WithdrawalRequest{},
		&WithdrawalSubmission{},
		&BlacklistedDeposit{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %v", err)
	}

	mm := migrations.NewMigrationManager(dm.db)
	if err := mm.EnsureMigrationTable(); err != nil {
		return fmt.Errorf("failed to create migration table: %v", err)
	}
	for _, m := range migrations.All() {
		if err := mm.RunMigration(m.Name, m.Fn); err != nil {
			return err
		}
	}
	return nil
}
