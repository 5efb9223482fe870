package config

import "strings"

const (
	defaultAppLogLevel  = "info"
	defaultAppLogPath   = "data/logs/hypersense.log"
	defaultAPIBaseURL   = "https://api.hyperliquid.xyz"
	defaultAPITimeout   = 10
	defaultPollInterval = 30
	defaultHistoryEvery = 1
	defaultTradeCount   = 20
	defaultLookbackDays = 7
	defaultDBPath       = "data/registry.db"
	defaultHATimeout    = 10
	defaultHTTPAddr     = ":9944"
)

func (c *Config) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.log_level", &c.App.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_path", &c.App.LogPath, defaultAppLogPath),
		stringFieldDefault("api.base_url", &c.API.BaseURL, defaultAPIBaseURL),
		intFieldDefault("api.timeout_seconds", &c.API.TimeoutSeconds, defaultAPITimeout),
		intFieldDefault("poll.interval_seconds", &c.Poll.IntervalSeconds, defaultPollInterval),
		intFieldDefault("poll.history_every", &c.Poll.HistoryEvery, defaultHistoryEvery),
		intFieldDefault("history.trade_count", &c.History.TradeCount, defaultTradeCount),
		intFieldDefault("history.lookback_days", &c.History.LookbackDays, defaultLookbackDays),
		stringFieldDefault("registry.db_path", &c.Registry.DBPath, defaultDBPath),
		intFieldDefault("registry.homeassistant.timeout_seconds",
			&c.Registry.HomeAssistant.TimeoutSeconds, defaultHATimeout),
		stringFieldDefault("http.addr", &c.HTTP.Addr, defaultHTTPAddr),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && strings.TrimSpace(*target) == "" },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target == 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
