// Package app wires the configured components together and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"hypersense/internal/config"
	"hypersense/internal/coordinator"
	"hypersense/internal/hyperliquid"
	"hypersense/internal/logger"
	"hypersense/internal/notifier"
	"hypersense/internal/registry"
	"hypersense/internal/snapshot"
	httpapi "hypersense/internal/transport/http"
)

type App struct {
	cfg     *config.Config
	coord   *coordinator.Coordinator
	httpSrv *httpapi.Server
	store   *registry.Store
	watcher *config.Watcher
}

// New builds the application without starting it. The config watcher is
// optional: pass an empty configPath to disable hot reload.
func New(cfg *config.Config, configPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	store, err := registry.NewStore(cfg.Registry.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open registry store: %w", err)
	}

	var pusher registry.Pusher = registry.NopPusher{}
	if ha := cfg.Registry.HomeAssistant; ha.Enabled {
		pusher = registry.NewHomeAssistantPusher(ha.BaseURL, ha.Token,
			time.Duration(ha.TimeoutSeconds)*time.Second)
		logger.Infof("app: pushing entity states to %s", ha.BaseURL)
	}

	var notify notifier.Notifier = notifier.Nop{}
	if tg := cfg.Notify.Telegram; tg.Enabled {
		notify = notifier.NewTelegram(tg.BotToken, tg.ChatID)
		logger.Infof("app: telegram notifications enabled")
	}

	client, err := hyperliquid.NewClient(hyperliquid.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: time.Duration(cfg.API.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	app := &App{cfg: cfg, store: store}

	options := cfg.PollOptions
	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, cfg)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("watch config: %w", err)
		}
		app.watcher = watcher
		options = watcher.Options
	}

	app.coord = coordinator.New(cfg.Account.Wallet(), snapshot.NewBuilder(client),
		store, pusher, notify, options)

	srv, err := httpapi.NewServer(cfg.HTTP.Addr, app.coord)
	if err != nil {
		store.Close()
		return nil, err
	}
	app.httpSrv = srv

	return app, nil
}

// Run starts the poll loop and the HTTP server; it returns when the context
// ends or either component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.coord == nil {
		return fmt.Errorf("app not initialized")
	}
	logger.Infof("app: monitoring %s every %s (http %s)",
		a.cfg.Account.Wallet(), a.cfg.PollOptions().Interval, a.httpSrv.Addr())

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.httpSrv.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		defer a.store.Close()
		err := a.coord.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return group.Wait()
}

// Coordinator exposes the poll loop, for tests and replay harnesses.
func (a *App) Coordinator() *coordinator.Coordinator {
	if a == nil {
		return nil
	}
	return a.coord
}
