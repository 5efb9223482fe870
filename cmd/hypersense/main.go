package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"hypersense/internal/app"
	"hypersense/internal/config"
	"hypersense/internal/logger"
)

func main() {
	cfgPath := os.Getenv("HYPERSENSE_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if err := logger.SetupFileOutput(cfg.App.LogPath); err != nil {
		log.Fatalf("setup log output failed: %v", err)
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("config loaded: wallet=%s interval=%ds", cfg.Account.Wallet(), cfg.Poll.IntervalSeconds)

	a, err := app.New(cfg, cfgPath)
	if err != nil {
		log.Fatalf("init app failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		log.Fatalf("run failed: %v", err)
	}
}
