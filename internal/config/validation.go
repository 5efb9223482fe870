package config

import (
	"fmt"
	"regexp"
	"strings"
)

var walletPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

func validate(c *Config) error {
	if !walletPattern.MatchString(strings.TrimSpace(c.Account.WalletAddress)) {
		return fmt.Errorf("account.wallet_address must be a 0x-prefixed 40-hex-digit address")
	}
	if c.Poll.IntervalSeconds < 10 || c.Poll.IntervalSeconds > 300 {
		return fmt.Errorf("poll.interval_seconds must be within [10, 300], got %d", c.Poll.IntervalSeconds)
	}
	if c.Poll.HistoryEvery < 1 {
		return fmt.Errorf("poll.history_every must be >= 1, got %d", c.Poll.HistoryEvery)
	}
	if c.History.TradeCount < 10 || c.History.TradeCount > 100 {
		return fmt.Errorf("history.trade_count must be within [10, 100], got %d", c.History.TradeCount)
	}
	if c.History.LookbackDays < 1 || c.History.LookbackDays > 30 {
		return fmt.Errorf("history.lookback_days must be within [1, 30], got %d", c.History.LookbackDays)
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be > 0, got %d", c.API.TimeoutSeconds)
	}
	if ha := c.Registry.HomeAssistant; ha.Enabled {
		if strings.TrimSpace(ha.BaseURL) == "" {
			return fmt.Errorf("registry.homeassistant.base_url required when enabled")
		}
		if strings.TrimSpace(ha.Token) == "" {
			return fmt.Errorf("registry.homeassistant.token required when enabled")
		}
	}
	if tg := c.Notify.Telegram; tg.Enabled {
		if strings.TrimSpace(tg.BotToken) == "" || strings.TrimSpace(tg.ChatID) == "" {
			return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
		}
	}
	return nil
}
