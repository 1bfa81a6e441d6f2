package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"toolshare-backend/internal/app"
	"toolshare-backend/internal/config"
	"toolshare-backend/internal/jobs"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'send-return-reminders', 'export-snapshot', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting ToolShare cronjob runner...", "log_level", cfg.Log.Level)

	ctx := context.Background()
	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open store", "error", err)
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	blobs, err := app.NewBlobStorage(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open blob storage", "error", err, "type", cfg.Storage.Type)
		log.Fatalf("Failed to open blob storage: %v", err)
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(store, &jobs.Services{Email: app.NewEmailService(cfg)}, blobs, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := jobRunner.Run(*runOnce); err != nil {
			logger.Error("Job failed", "job", *runOnce, "error", err)
			fmt.Printf("Available jobs: %s, %s\n", strings.Join(jobRunner.Names(), ", "), jobs.JobAll)
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}
