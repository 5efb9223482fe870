package config

import "strings"

// Config is the full runtime configuration.
type Config struct {
	App      AppConfig      `toml:"app"`
	Account  AccountConfig  `toml:"account"`
	API      APIConfig      `toml:"api"`
	Poll     PollConfig     `toml:"poll"`
	History  HistoryConfig  `toml:"history"`
	Registry RegistryConfig `toml:"registry"`
	HTTP     HTTPConfig     `toml:"http"`
	Notify   NotifyConfig   `toml:"notify"`
}

type AppConfig struct {
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
}

type AccountConfig struct {
	WalletAddress string `toml:"wallet_address"`
}

func (a AccountConfig) Wallet() string {
	return strings.ToLower(strings.TrimSpace(a.WalletAddress))
}

type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// PollConfig controls the poll loop. HistoryEvery decouples the expensive
// history fetches from the core cadence: every Nth cycle also refreshes
// fills, funding, portfolio and referral data.
type PollConfig struct {
	IntervalSeconds int `toml:"interval_seconds"`
	HistoryEvery    int `toml:"history_every"`
}

type HistoryConfig struct {
	TradeCount   int `toml:"trade_count"`
	LookbackDays int `toml:"lookback_days"`
}

type RegistryConfig struct {
	DBPath        string              `toml:"db_path"`
	HomeAssistant HomeAssistantConfig `toml:"homeassistant"`
}

type HomeAssistantConfig struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type HTTPConfig struct {
	Addr string `toml:"addr"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// keySet tracks which field paths the config file set explicitly, so
// defaults never clobber an intentional zero.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

// fieldDefault is one field's defaulting rule.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
