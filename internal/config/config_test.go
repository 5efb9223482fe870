package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
account:
  wallet_address: "0x1234567890abcdef1234567890abcdef12345678"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "https://api.hyperliquid.xyz", cfg.API.BaseURL)
	assert.Equal(t, 30, cfg.Poll.IntervalSeconds)
	assert.Equal(t, 1, cfg.Poll.HistoryEvery)
	assert.Equal(t, 20, cfg.History.TradeCount)
	assert.Equal(t, 7, cfg.History.LookbackDays)
	assert.Equal(t, "data/registry.db", cfg.Registry.DBPath)
	assert.Equal(t, ":9944", cfg.HTTP.Addr)
}

func TestLoadExplicitValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
account:
  wallet_address: "0x1234567890ABCDEF1234567890abcdef12345678"
poll:
  interval_seconds: 60
  history_every: 5
history:
  trade_count: 50
  lookback_days: 14
`))
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Poll.IntervalSeconds)
	assert.Equal(t, 5, cfg.Poll.HistoryEvery)
	assert.Equal(t, 50, cfg.History.TradeCount)
	assert.Equal(t, 14, cfg.History.LookbackDays)
	// wallet is exposed normalized
	assert.Equal(t, "0x1234567890abcdef1234567890abcdef12345678", cfg.Account.Wallet())
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing wallet", `{}`},
		{"malformed wallet", `
account:
  wallet_address: "not-an-address"
`},
		{"wallet too short", `
account:
  wallet_address: "0x1234"
`},
		{"interval below range", `
account:
  wallet_address: "0x1234567890abcdef1234567890abcdef12345678"
poll:
  interval_seconds: 5
`},
		{"interval above range", `
account:
  wallet_address: "0x1234567890abcdef1234567890abcdef12345678"
poll:
  interval_seconds: 301
`},
		{"trade count out of range", `
account:
  wallet_address: "0x1234567890abcdef1234567890abcdef12345678"
history:
  trade_count: 5
`},
		{"lookback out of range", `
account:
  wallet_address: "0x1234567890abcdef1234567890abcdef12345678"
history:
  lookback_days: 31
`},
		{"homeassistant enabled without token", `
account:
  wallet_address: "0x1234567890abcdef1234567890abcdef12345678"
registry:
  homeassistant:
    enabled: true
    base_url: "http://ha.local:8123"
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestPollOptions(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	opts := cfg.PollOptions()
	assert.Equal(t, 30*time.Second, opts.Interval)
	assert.Equal(t, 1, opts.HistoryEvery)
	assert.Equal(t, 20, opts.TradeCount)
	assert.Equal(t, 7, opts.LookbackDays)
}

func TestWatcherRejectsWalletChange(t *testing.T) {
	path := writeConfig(t, minimalConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	w, err := NewWatcher(path, cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.PollOptions(), w.Options())

	require.NoError(t, os.WriteFile(path, []byte(`
account:
  wallet_address: "0xffffffffffffffffffffffffffffffffffffffff"
`), 0o644))
	require.NoError(t, w.v.ReadInConfig())
	err = w.reload()
	assert.Error(t, err)
	// options are unchanged after the rejected reload
	assert.Equal(t, cfg.PollOptions(), w.Options())
}
