package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vigia/config"
	"vigia/internal/consumer"
	"vigia/internal/dedup"
	"vigia/internal/logger"
	"vigia/internal/metrics"
	"vigia/internal/queue"
	"vigia/internal/transport"
)

func applyDefaults(cfg *config.Config) {
	if cfg.Vigia.Redis.Addr == "" {
		cfg.Vigia.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.Vigia.Redis.DetectionsQueue == "" {
		cfg.Vigia.Redis.DetectionsQueue = "detections_queue"
	}
	if cfg.Vigia.Redis.BufferQueue == "" {
		cfg.Vigia.Redis.BufferQueue = "buffer_ws"
	}

	if cfg.Vigia.Processor.ConfidenceThreshold == 0 {
		cfg.Vigia.Processor.ConfidenceThreshold = 0.5
	}
	if cfg.Vigia.Processor.MarkersDir == "" {
		cfg.Vigia.Processor.MarkersDir = "markers"
	}
	if cfg.Vigia.Processor.MarkerTTL <= 0 {
		cfg.Vigia.Processor.MarkerTTL = 15 * time.Minute
	}
	if cfg.Vigia.Processor.ServerURL == "" {
		cfg.Vigia.Processor.ServerURL = "ws://127.0.0.1:8765"
	}
	if cfg.Vigia.Processor.DialTimeout <= 0 {
		cfg.Vigia.Processor.DialTimeout = 5 * time.Second
	}
	if cfg.Vigia.Processor.SystemName == "" {
		cfg.Vigia.Processor.SystemName = "processor"
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
	logger.Infof("Vigía processor starting")

	detectionsQueue, err := queue.NewRedisQueue(queue.Config{
		Addr:     cfg.Vigia.Redis.Addr,
		Password: cfg.Vigia.Redis.Password,
		DB:       cfg.Vigia.Redis.DB,
		Key:      cfg.Vigia.Redis.DetectionsQueue,
	})
	if err != nil {
		log.Fatalf("Failed to open detections queue: %v", err)
	}
	bufferQueue, err := queue.NewRedisQueue(queue.Config{
		Addr:     cfg.Vigia.Redis.Addr,
		Password: cfg.Vigia.Redis.Password,
		DB:       cfg.Vigia.Redis.DB,
		Key:      cfg.Vigia.Redis.BufferQueue,
	})
	if err != nil {
		log.Fatalf("Failed to open buffer queue: %v", err)
	}

	client, err := transport.NewClient(transport.Config{
		ServerURL:   cfg.Vigia.Processor.ServerURL,
		DialTimeout: cfg.Vigia.Processor.DialTimeout,
	}, bufferQueue)
	if err != nil {
		log.Fatalf("Failed to create transport client: %v", err)
	}

	markers, err := dedup.NewMarkerStore(cfg.Vigia.Processor.MarkersDir)
	if err != nil {
		log.Fatalf("Failed to open marker store: %v", err)
	}

	validator := dedup.NewValidator(cfg.Vigia.Processor.ConfidenceThreshold, markers, client)
	cons := consumer.New(detectionsQueue, validator)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	system := cfg.Vigia.Processor.SystemName
	logger.SetForwarder(func(msg string) {
		client.ReportError(ctx, system, msg)
	})

	metrics.Serve(ctx, cfg.Vigia.Metrics.Addr)

	markerTTL := cfg.Vigia.Processor.MarkerTTL
	go func() {
		ticker := time.NewTicker(markerTTL)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := markers.Sweep(markerTTL); err != nil {
					logger.Errorf("Marker sweep failed: %v", err)
				} else if n > 0 {
					logger.Infof("Marker sweep removed %d expired markers", n)
				}
			}
		}
	}()

	go func() {
		if err := cons.Run(ctx); err != nil && err != context.Canceled {
			logger.Errorf("Consumer stopped: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("Shutting down")
	cancel()
	time.Sleep(500 * time.Millisecond)

	detectionsQueue.Close()
	bufferQueue.Close()
	logger.Infof("Vigía processor stopped")
}
