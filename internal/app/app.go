// Package app builds the store, services and blob storage both binaries
// share from a loaded config.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"toolshare-backend/internal/config"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/metrics"
	"toolshare-backend/internal/repository"
	"toolshare-backend/internal/repository/csvfile"
	"toolshare-backend/internal/repository/memory"
	"toolshare-backend/internal/repository/postgres"
	"toolshare-backend/internal/repository/sqlite"
	"toolshare-backend/internal/security"
	"toolshare-backend/internal/service"
	"toolshare-backend/internal/storage"
)

// OpenStore opens the backend named by cfg.Store.Driver.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		logger.Info("Using in-memory store")
		return memory.NewStore(), nil
	case config.StoreDriverCSV:
		logger.Info("Using CSV store", "dir", cfg.Store.DataDir)
		return csvfile.Open(cfg.Store.DataDir)
	case config.StoreDriverSQLite:
		logger.Info("Using SQLite store", "path", cfg.Store.SQLitePath)
		return sqlite.Open(cfg.Store.SQLitePath)
	case config.StoreDriverPostgres:
		db := cfg.Store.Database
		logger.Info("Connecting to database...", "host", db.Host, "port", db.Port, "database", db.Database, "user", db.User)
		conn, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := conn.PingContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		if err := postgres.Migrate(ctx, conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info("Database connection established")
		return postgres.NewStore(conn), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %q", cfg.Store.Driver)
	}
}

// NewEmailService picks the sender named by cfg.Email.Driver.
func NewEmailService(cfg *config.Config) service.EmailService {
	if cfg.Email.Driver == "sendgrid" {
		logger.Info("Email delivery via SendGrid", "host", cfg.Email.Host, "from", cfg.Email.From)
		return service.NewEmailService(service.NewSendGridEmailSender(cfg.Email.APIKey, cfg.Email.Host, cfg.Email.From, cfg.Email.FromName))
	}
	logger.Info("Email delivery disabled, logging messages instead")
	return service.NewEmailService(service.NewLogEmailSender())
}

// NewBlobStorage opens the snapshot export target.
func NewBlobStorage(ctx context.Context, cfg *config.Config) (storage.StorageInterface, error) {
	return storage.New(ctx, storage.Config{
		Type:            cfg.Storage.Type,
		Dir:             cfg.Storage.Dir,
		Bucket:          cfg.Storage.Bucket,
		Region:          cfg.Storage.Region,
		Endpoint:        cfg.Storage.Endpoint,
		PathStyle:       cfg.Storage.PathStyle,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
	})
}

// Services is every domain service wired to one store.
type Services struct {
	Auth         service.AuthService
	Users        service.UserService
	Tools        service.ToolService
	Availability service.AvailabilityService
	Bookings     service.BookingService
	Swaps        service.SwapService
	Email        service.EmailService
}

// NewServices wires the domain services. rec may be nil.
func NewServices(cfg *config.Config, store repository.Store, rec metrics.Recorder) *Services {
	var opts []service.Option
	if rec != nil {
		opts = append(opts, service.WithRecorder(rec))
	}
	tokens := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TokenExpiryMinutes)*time.Minute)
	email := NewEmailService(cfg)
	availability := service.NewAvailabilityService(store, service.AvailabilityMode(cfg.Availability.Mode), opts...)

	return &Services{
		Auth:         service.NewAuthService(store, tokens, opts...),
		Users:        service.NewUserService(store, opts...),
		Tools:        service.NewToolService(store, opts...),
		Availability: availability,
		Bookings:     service.NewBookingService(store, availability, email, opts...),
		Swaps:        service.NewSwapService(store, email, opts...),
		Email:        email,
	}
}
