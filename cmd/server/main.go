package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"toolshare-backend/internal/api/grpc"
	httpapi "toolshare-backend/internal/api/http"
	"toolshare-backend/internal/app"
	"toolshare-backend/internal/config"
	"toolshare-backend/internal/jobs"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/metrics"
	"toolshare-backend/internal/scheduler"
	"toolshare-backend/internal/seed"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting ToolShare backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http_address", cfg.GetServerAddress(), "grpc_address", cfg.GetGRPCAddress())
	logger.Info("Store configuration", "driver", cfg.Store.Driver, "availability_mode", cfg.Availability.Mode)

	ctx := context.Background()

	// Initialize store
	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open store", "error", err)
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	if cfg.Seed.Enabled {
		if _, err := seed.Run(ctx, store, cfg.Seed); err != nil {
			logger.Error("Failed to seed demo data", "error", err)
			log.Fatalf("Failed to seed demo data: %v", err)
		}
	}

	// Initialize services
	recorder := metrics.NewPrometheusRecorder()
	services := app.NewServices(cfg, store, recorder)

	router := httpapi.NewRouter(httpapi.Services{
		Auth:         services.Auth,
		Users:        services.Users,
		Tools:        services.Tools,
		Availability: services.Availability,
		Bookings:     services.Bookings,
		Swaps:        services.Swaps,
		Health:       store,
		Metrics:      recorder.Handler(),
	})
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// gRPC health and booking endpoints; health is driven by the store health job
	var grpcServer *grpc.Server
	var healthJobs *scheduler.Scheduler
	if addr := cfg.GetGRPCAddress(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", addr)
			log.Fatalf("Failed to listen: %v", err)
		}
		grpcServer = grpc.NewServer(store, services.Auth, services.Bookings)
		if err := grpcServer.CheckStore(ctx); err != nil {
			logger.Warn("Store not reachable at startup", "error", err)
		}
		go func() {
			logger.Info("gRPC server listening", "address", addr)
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- err
			}
		}()

		runner := jobs.NewJobRunner(store, &jobs.Services{Email: services.Email}, nil, cfg).WithHealth(grpcServer)
		healthJobs, err = scheduler.NewScheduler(runner, jobs.JobCheckStoreHealth)
		if err != nil {
			log.Fatalf("Failed to create scheduler: %v", err)
		}
		healthJobs.Start()
	}

	// Wait for interrupt signal or a listener failure
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		logger.Info("Received signal", "signal", sig.String())
	case err := <-errCh:
		logger.Error("Server failed", "error", err)
	}

	// Graceful shutdown
	logger.Info("Shutting down...")
	if healthJobs != nil {
		healthJobs.Stop()
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	logger.Info("ToolShare backend stopped. Goodbye!")
}
