package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	DBDriverSqlite   = "sqlite"
	DBDriverPostgres = "postgres"
)

// Load reads the service configuration from the environment (and an optional .env file)
// and configures the package logger.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("Failed to load .env file: %v", err)
	}

	viper.AutomaticEnv()

	// Default config
	viper.SetDefault("HTTP_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_DRIVER", DBDriverSqlite)
	viper.SetDefault("DB_DIR", "/app/db")
	viper.SetDefault("DB_DSN", "")
	viper.SetDefault("BTC_RPC", "localhost:8332")
	viper.SetDefault("BTC_RPC_USER", "")
	viper.SetDefault("BTC_RPC_PASS", "")
	viper.SetDefault("BTC_NETWORK_TYPE", "mainnet")
	viper.SetDefault("MIN_CONFIRMATIONS", 6)
	viper.SetDefault("BTC_NOTIFY_INTERVAL", "30s")
	viper.SetDefault("BITCOIN_PUB_KEY", "")
	viper.SetDefault("RUNES_BRIDGE_STARKNET_PRIV_KEY", "")
	viper.SetDefault("HIRO_API_URL", "https://api.hiro.so")
	viper.SetDefault("HIRO_API_KEY", "")
	viper.SetDefault("HIRO_TIMEOUT", "10s")
	viper.SetDefault("INDEXER_MAX_CALLS_PER_MINUTE", 500)
	viper.SetDefault("NATS_URL", "")
	viper.SetDefault("NATS_SUBJECT_PREFIX", "runes")
	viper.SetDefault("ADMIN_JWT_PUBKEY", "")

	logLevel, err := logrus.ParseLevel(strings.ToLower(viper.GetString("LOG_LEVEL")))
	if err != nil {
		return Config{}, fmt.Errorf("invalid log level: %v", err)
	}

	cfg := Config{
		HTTPPort:                 viper.GetString("HTTP_PORT"),
		LogLevel:                 logLevel,
		DBDriver:                 strings.ToLower(viper.GetString("DB_DRIVER")),
		DbDir:                    viper.GetString("DB_DIR"),
		DbDSN:                    viper.GetString("DB_DSN"),
		BTCRPC:                   viper.GetString("BTC_RPC"),
		BTCRPC_USER:              viper.GetString("BTC_RPC_USER"),
		BTCRPC_PASS:              viper.GetString("BTC_RPC_PASS"),
		BTCNetworkType:           strings.ToLower(viper.GetString("BTC_NETWORK_TYPE")),
		MinConfirmations:         viper.GetInt64("MIN_CONFIRMATIONS"),
		BTCNotifyInterval:        viper.GetDuration("BTC_NOTIFY_INTERVAL"),
		BitcoinPubKey:            viper.GetString("BITCOIN_PUB_KEY"),
		StarknetPrivKey:          viper.GetString("RUNES_BRIDGE_STARKNET_PRIV_KEY"),
		HiroAPIURL:               strings.TrimRight(viper.GetString("HIRO_API_URL"), "/"),
		HiroAPIKey:               viper.GetString("HIRO_API_KEY"),
		HiroTimeout:              viper.GetDuration("HIRO_TIMEOUT"),
		IndexerMaxCallsPerMinute: viper.GetInt("INDEXER_MAX_CALLS_PER_MINUTE"),
		NatsURL:                  viper.GetString("NATS_URL"),
		NatsSubjectPrefix:        viper.GetString("NATS_SUBJECT_PREFIX"),
		AdminJWTPubKey:           viper.GetString("ADMIN_JWT_PUBKEY"),
	}

	if _, err := cfg.ChainParams(); err != nil {
		return Config{}, err
	}
	if cfg.DBDriver != DBDriverSqlite && cfg.DBDriver != DBDriverPostgres {
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.DBDriver == DBDriverPostgres && cfg.DbDSN == "" {
		return Config{}, fmt.Errorf("DB_DSN is required for postgres")
	}
	if cfg.IndexerMaxCallsPerMinute <= 0 {
		return Config{}, fmt.Errorf("INDEXER_MAX_CALLS_PER_MINUTE must be positive, got %d", cfg.IndexerMaxCallsPerMinute)
	}

	if cfg.BTCNetworkType == "mainnet" && cfg.MinConfirmations < 6 {
		logrus.Warnf("BTC mainnet confirmations is too low, set to 6")
		cfg.MinConfirmations = 6
	}

	logrus.Infof("Init config, network %s, min confirmations %d, indexer %s, db driver %s",
		cfg.BTCNetworkType, cfg.MinConfirmations, cfg.HiroAPIURL, cfg.DBDriver)

	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(cfg.LogLevel)

	return cfg, nil
}

type Config struct {
	HTTPPort                 string
	LogLevel                 logrus.Level
	DBDriver                 string
	DbDir                    string
	DbDSN                    string
	BTCRPC                   string
	BTCRPC_USER              string
	BTCRPC_PASS              string
	BTCNetworkType           string
	MinConfirmations         int64
	BTCNotifyInterval        time.Duration
	BitcoinPubKey            string
	StarknetPrivKey          string
	HiroAPIURL               string
	HiroAPIKey               string
	HiroTimeout              time.Duration
	IndexerMaxCallsPerMinute int
	NatsURL                  string
	NatsSubjectPrefix        string
	AdminJWTPubKey           string
}

// ChainParams maps BTC_NETWORK_TYPE to btcd network parameters.
func (c Config) ChainParams() (*chaincfg.Params, error) {
	switch c.BTCNetworkType {
	case "", "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unknown BTC_NETWORK_TYPE %q", c.BTCNetworkType)
	}
}
