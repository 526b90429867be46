package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"vigia/config"
	"vigia/internal/display"
	"vigia/internal/logger"
	"vigia/internal/metrics"
	"vigia/internal/retention"
	"vigia/internal/server"
	"vigia/internal/storage"
)

func applyDefaults(cfg *config.Config) {
	if cfg.Vigia.Server.Host == "" {
		cfg.Vigia.Server.Host = "0.0.0.0"
	}
	if cfg.Vigia.Server.Port == 0 {
		cfg.Vigia.Server.Port = 8765
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if cfg.Vigia.Server.StoragePath == "" {
		cfg.Vigia.Server.StoragePath = filepath.Join(home, "Documents", "detections")
	}
	if cfg.Vigia.Server.LogsPath == "" {
		cfg.Vigia.Server.LogsPath = filepath.Join(home, "Documents", "logs")
	}

	if cfg.Vigia.Retention.DeleteDays <= 0 {
		cfg.Vigia.Retention.DeleteDays = 30
	}
	if cfg.Vigia.Retention.LogDeleteDays <= 0 {
		cfg.Vigia.Retention.LogDeleteDays = cfg.Vigia.Retention.DeleteDays
	}
	if cfg.Vigia.Retention.EraseHour == 0 && cfg.Vigia.Retention.EraseMinute == 0 &&
		cfg.Vigia.Retention.EraseSecond == 0 && cfg.Vigia.Retention.EraseMillisecond == 0 {
		cfg.Vigia.Retention.EraseHour = 12
	}

	if cfg.Vigia.Logging.Level == "" {
		cfg.Vigia.Logging.Level = "info"
	}
}

func main() {
	configPath := flag.String("config", "", "path to vigia.yml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyDefaults(cfg)

	if err := logger.Init(true, cfg.Vigia.Logging.Level, cfg.Vigia.Logging.File, cfg.Vigia.Logging.Console); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Infof("Vigía alert server starting")

	store := storage.NewStore(cfg.Vigia.Server.StoragePath, cfg.Vigia.Server.LogsPath)
	dispatcher := display.NewDispatcher(display.LogDisplay{}, cfg.Vigia.Server.DisplayQueueDepth)
	router := server.NewRouter(store, dispatcher)

	sweeper := retention.NewSweeper(retention.Config{
		DetectionsRoot:   cfg.Vigia.Server.StoragePath,
		LogsRoot:         cfg.Vigia.Server.LogsPath,
		RetentionDays:    cfg.Vigia.Retention.DeleteDays,
		LogRetentionDays: cfg.Vigia.Retention.LogDeleteDays,
	})
	scheduler, err := retention.NewScheduler(sweeper, retention.EraseTime{
		Hour:        cfg.Vigia.Retention.EraseHour,
		Minute:      cfg.Vigia.Retention.EraseMinute,
		Second:      cfg.Vigia.Retention.EraseSecond,
		Millisecond: cfg.Vigia.Retention.EraseMillisecond,
	})
	if err != nil {
		log.Fatalf("Failed to build retention schedule: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics.Serve(ctx, cfg.Vigia.Metrics.Addr)

	go func() {
		if err := scheduler.Run(ctx); err != nil && err != context.Canceled {
			logger.Errorf("Retention scheduler stopped: %v", err)
		}
	}()
	go func() {
		if err := router.Serve(ctx, server.Config{
			Host: cfg.Vigia.Server.Host,
			Port: cfg.Vigia.Server.Port,
		}); err != nil {
			logger.Errorf("Alert server stopped: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("Shutting down")
	cancel()
	time.Sleep(500 * time.Millisecond)
	dispatcher.Close()
	logger.Infof("Vigía alert server stopped")
}
