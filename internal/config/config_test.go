package config

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMainnetRaisesConfirmations(t *testing.T) {
	t.Setenv("BTC_NETWORK_TYPE", "mainnet")
	t.Setenv("MIN_CONFIRMATIONS", "2")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(6), cfg.MinConfirmations)

	params, err := cfg.ChainParams()
	require.NoError(t, err)
	assert.Equal(t, chaincfg.MainNetParams.Name, params.Name)
}

func TestLoadRegtestKeepsConfirmations(t *testing.T) {
	t.Setenv("BTC_NETWORK_TYPE", "regtest")
	t.Setenv("MIN_CONFIRMATIONS", "1")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("HIRO_API_URL", "http://localhost:3999/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(1), cfg.MinConfirmations)
	assert.Equal(t, "http://localhost:3999", cfg.HiroAPIURL)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown network", env: map[string]string{"BTC_NETWORK_TYPE": "litecoin"}},
		{name: "unknown driver", env: map[string]string{"DB_DRIVER": "mysql"}},
		{name: "postgres without dsn", env: map[string]string{"DB_DRIVER": "postgres", "DB_DSN": ""}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "loud"}},
		{name: "zero rate limit", env: map[string]string{"INDEXER_MAX_CALLS_PER_MINUTE": "0"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("BTC_NETWORK_TYPE", "regtest")
			t.Setenv("DB_DRIVER", "sqlite")
			t.Setenv("LOG_LEVEL", "info")
			t.Setenv("INDEXER_MAX_CALLS_PER_MINUTE", "500")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
