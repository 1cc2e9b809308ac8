// Package main runs the background worker that keeps the quantity cache in
// step with the inventory ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"repairpos/internal/app"
	"repairpos/internal/config"
	"repairpos/internal/infrastructure/cache"
	"repairpos/internal/infrastructure/storage/postgres"
	"repairpos/pkg/logger"
)

func main() {
	configDir := flag.String("config", ".", "directory holding config.toml")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.IsDevelopment()})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to start", "error", err)
	}
	defer a.Close()

	worker := NewRebuildWorker(a.Quantities, cfg.Worker, log)
	if a.Redis == nil {
		log.Warn("redis disabled, rebuilds only warm the no-op cache")
	} else {
		worker.WithLock(cache.NewPassLock(a.Redis, "quantity-rebuild", cfg.Worker.RebuildInterval))
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		reportPool(ctx, a.Pool, time.Hour)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

func reportPool(ctx context.Context, pool *postgres.Pool, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			postgres.LogPoolStats(ctx, pool)
		}
	}
}
