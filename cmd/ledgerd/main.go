package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fadedpez/agentledger/internal/app"
	"github.com/fadedpez/agentledger/internal/config"
	"github.com/fadedpez/agentledger/pkg/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger := app.NewLogger(cfg)

	ledger, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("Error starting ledger: %v", err)
		os.Exit(1)
	}
	defer ledger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobs := scheduler.NewScheduler(cfg.Location, logger)
	if err := ledger.Jobs.Register(jobs, ledger.Schedules()); err != nil {
		logger.Error("Error registering jobs: %v", err)
		os.Exit(1)
	}
	if err := jobs.Start(ctx); err != nil {
		logger.Error("Error starting scheduler: %v", err)
		os.Exit(1)
	}

	logger.Info("Ledger is running in %s. Press Ctrl+C to exit", cfg.Environment)

	// Wait for interrupt signal to gracefully shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down...")
	jobs.Stop()
}
