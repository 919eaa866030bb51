package state

import (
	"context"
	"sync"

	"github.com/runesbridge/runes-bridge/internal/db"
	log "github.com/sirupsen/logrus"
)

// State owns the ledger tables and the event bus shared by the bridge components.
type State struct {
	EventBus *EventBus

	dbm *db.DatabaseManager

	// Separate mutexes for different sub-modules
	depositMu  sync.RWMutex
	withdrawMu sync.RWMutex
	runeMu     sync.RWMutex
}

func InitializeState(dbm *db.DatabaseManager) *State {
	var runeCount, addrCount int64
	if err := dbm.GetDB().Model(&db.SupportedRune{}).Count(&runeCount).Error; err != nil {
		log.Warnf("Failed to count supported runes: %v", err)
	}
	if err := dbm.GetDB().Model(&db.DepositAddress{}).Count(&addrCount).Error; err != nil {
		log.Warnf("Failed to count deposit addresses: %v", err)
	}
	log.Infof("State init on startup, supported runes: %d, deposit addresses: %d", runeCount, addrCount)

	return &State{
		EventBus: NewEventBus(),
		dbm:      dbm,
	}
}

// Ping checks that the database still answers
func (s *State) Ping(ctx context.Context) error {
	sqlDB, err := s.dbm.GetDB().DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
