package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"hypersense/internal/logger"
)

// PollOptions is the hot-reloadable subset of the configuration. The wallet
// address, database path and listen address stay fixed for the process
// lifetime; cadence and history sizing may change between cycles.
type PollOptions struct {
	Interval     time.Duration
	HistoryEvery int
	TradeCount   int
	LookbackDays int
}

func (c *Config) PollOptions() PollOptions {
	return PollOptions{
		Interval:     time.Duration(c.Poll.IntervalSeconds) * time.Second,
		HistoryEvery: c.Poll.HistoryEvery,
		TradeCount:   c.History.TradeCount,
		LookbackDays: c.History.LookbackDays,
	}
}

// ChangeListener receives the new poll options after a successful reload.
type ChangeListener func(PollOptions)

// Watcher reloads the config file on filesystem changes. A reload that fails
// validation keeps the previous options and logs; a wallet change is
// rejected because entity identity is keyed by wallet.
type Watcher struct {
	path   string
	v      *viper.Viper
	wallet string

	mu        sync.RWMutex
	options   PollOptions
	listeners []ChangeListener
}

func NewWatcher(path string, initial *Config) (*Watcher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("watcher requires config path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}
	w := &Watcher{
		path:    path,
		v:       v,
		wallet:  initial.Account.Wallet(),
		options: initial.PollOptions(),
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := w.reload(); err != nil {
			logger.Errorf("config reload failed (%s): %v", evt.Name, err)
			return
		}
		w.notify()
	})
	v.WatchConfig()
	return w, nil
}

func (w *Watcher) reload() error {
	if err := w.v.ReadInConfig(); err != nil {
		return err
	}
	cfg, err := decode(w.v)
	if err != nil {
		return err
	}
	if cfg.Account.Wallet() != w.wallet {
		return fmt.Errorf("wallet_address cannot change at runtime (restart required)")
	}
	w.mu.Lock()
	w.options = cfg.PollOptions()
	w.mu.Unlock()
	logger.Infof("config reloaded: interval=%s history_every=%d trade_count=%d lookback_days=%d",
		w.options.Interval, w.options.HistoryEvery, w.options.TradeCount, w.options.LookbackDays)
	return nil
}

// Options returns the current poll options.
func (w *Watcher) Options() PollOptions {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.options
}

// Subscribe registers a listener for future reloads.
func (w *Watcher) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	w.listeners = append(w.listeners, fn)
	w.mu.Unlock()
}

func (w *Watcher) notify() {
	w.mu.RLock()
	opts := w.options
	listeners := make([]ChangeListener, len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.RUnlock()
	for _, fn := range listeners {
		fn(opts)
	}
}
