package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Store        StoreConfig        `yaml:"store"`
	JWT          JWTConfig          `yaml:"jwt"`
	Email        EmailConfig        `yaml:"email"`
	Storage      StorageConfig      `yaml:"storage"`
	Log          LogConfig          `yaml:"log"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Availability AvailabilityConfig `yaml:"availability"`
	Seed         SeedConfig         `yaml:"seed"`
}

// ServerConfig contains the HTTP and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

const (
	StoreDriverMemory   = "memory"
	StoreDriverCSV      = "csv"
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
)

// StoreConfig selects the entity store backend
type StoreConfig struct {
	Driver     string         `yaml:"driver"`      // memory, csv, sqlite or postgres
	DataDir    string         `yaml:"data_dir"`    // csv files
	SQLitePath string         `yaml:"sqlite_path"` // sqlite snapshot database
	Database   DatabaseConfig `yaml:"database"`    // postgres
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// JWTConfig contains session token settings
type JWTConfig struct {
	Secret             string `yaml:"secret"`
	TokenExpiryMinutes int    `yaml:"token_expiry_minutes"`
}

// EmailConfig contains notification delivery settings
type EmailConfig struct {
	Driver   string `yaml:"driver"` // "log" or "sendgrid"
	APIKey   string `yaml:"api_key"`
	Host     string `yaml:"host"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
}

// StorageConfig contains blob storage settings used by snapshot exports
type StorageConfig struct {
	Type      string `yaml:"type"` // "fs" or "s3"
	Dir       string `yaml:"dir"`  // fs root
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`

	// Static keys; empty falls back to the AWS default credential chain.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings (with seconds field)
type SchedulerConfig struct {
	SendReturnReminders     string `yaml:"send_return_reminders"`
	ReportAvailabilityDrift string `yaml:"report_availability_drift"`
	ExportSnapshot          string `yaml:"export_snapshot"`
	CheckStoreHealth        string `yaml:"check_store_health"`
}

const (
	AvailabilityOverride = "override"
	AvailabilityDerived  = "derived"
)

// AvailabilityConfig decides how the manual tool flag combines with bookings
type AvailabilityConfig struct {
	Mode string `yaml:"mode"`
}

// SeedConfig controls demo data generation for an empty store
type SeedConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ToolCount    int    `yaml:"tool_count"`
	RandomSeed   uint64 `yaml:"random_seed"`
	DemoPassword string `yaml:"demo_password"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Store
	if val := os.Getenv("STORE_DRIVER"); val != "" {
		c.Store.Driver = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.Store.DataDir = val
	}
	if val := os.Getenv("SQLITE_PATH"); val != "" {
		c.Store.SQLitePath = val
	}

	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Store.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Store.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Store.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Store.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Store.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Store.Database.SSLMode = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("SERVER_GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}

	// Email
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Email.APIKey = val
		if c.Email.Driver == "" {
			c.Email.Driver = "sendgrid"
		}
	}
	if val := os.Getenv("EMAIL_FROM"); val != "" {
		c.Email.From = val
	}

	// Blob storage
	if val := os.Getenv("BLOB_TYPE"); val != "" {
		c.Storage.Type = val
	}
	if val := os.Getenv("BLOB_DIR"); val != "" {
		c.Storage.Dir = val
	}
	if val := os.Getenv("BLOB_BUCKET"); val != "" {
		c.Storage.Bucket = val
	}
	if val := os.Getenv("BLOB_REGION"); val != "" {
		c.Storage.Region = val
	}
	if val := os.Getenv("BLOB_ENDPOINT"); val != "" {
		c.Storage.Endpoint = val
	}
	if val := os.Getenv("BLOB_PATH_STYLE"); val != "" {
		c.Storage.PathStyle = strings.EqualFold(val, "true")
	}
	if val := os.Getenv("BLOB_ACCESS_KEY_ID"); val != "" {
		c.Storage.AccessKeyID = val
	}
	if val := os.Getenv("BLOB_SECRET_ACCESS_KEY"); val != "" {
		c.Storage.SecretAccessKey = val
	}

	// Availability
	if val := os.Getenv("AVAILABILITY_MODE"); val != "" {
		c.Availability.Mode = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}

	// Store validation
	c.Store.Driver = strings.ToLower(c.Store.Driver)
	if c.Store.Driver == "" {
		c.Store.Driver = StoreDriverCSV
	}
	switch c.Store.Driver {
	case StoreDriverMemory:
	case StoreDriverCSV:
		if c.Store.DataDir == "" {
			c.Store.DataDir = "data"
		}
	case StoreDriverSQLite:
		if c.Store.SQLitePath == "" {
			c.Store.SQLitePath = filepath.Join("data", "toolshare.db")
		}
	case StoreDriverPostgres:
		if c.Store.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Store.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Store.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Store.Database.Port == 0 {
			c.Store.Database.Port = 5432
		}
		if c.Store.Database.SSLMode == "" {
			c.Store.Database.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("unknown store driver: %q", c.Store.Driver)
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.TokenExpiryMinutes <= 0 {
		c.JWT.TokenExpiryMinutes = 60
	}

	// Email validation
	if c.Email.Driver == "" {
		c.Email.Driver = "log"
	}
	switch c.Email.Driver {
	case "log":
	case "sendgrid":
		if c.Email.APIKey == "" {
			return fmt.Errorf("sendgrid api key is required")
		}
		if c.Email.Host == "" {
			c.Email.Host = "https://api.sendgrid.com"
		}
	default:
		return fmt.Errorf("unknown email driver: %q", c.Email.Driver)
	}
	if c.Email.From == "" {
		c.Email.From = "noreply@toolshare.local"
	}
	if c.Email.FromName == "" {
		c.Email.FromName = "ToolShare"
	}

	// Storage validation
	if c.Storage.Type == "" {
		c.Storage.Type = "fs"
	}
	switch c.Storage.Type {
	case "fs":
		if c.Storage.Dir == "" {
			c.Storage.Dir = "exports"
		}
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage bucket is required for s3")
		}
		if c.Storage.Region == "" {
			c.Storage.Region = "us-east-1"
		}
	default:
		return fmt.Errorf("unknown storage type: %q", c.Storage.Type)
	}

	// Availability defaults
	c.Availability.Mode = strings.ToLower(c.Availability.Mode)
	if c.Availability.Mode == "" {
		c.Availability.Mode = AvailabilityOverride
	}
	if c.Availability.Mode != AvailabilityOverride && c.Availability.Mode != AvailabilityDerived {
		return fmt.Errorf("unknown availability mode: %q", c.Availability.Mode)
	}

	// Seed defaults
	if c.Seed.ToolCount <= 0 {
		c.Seed.ToolCount = 50
	}
	if c.Seed.DemoPassword == "" {
		c.Seed.DemoPassword = "password123"
	}

	// Scheduler defaults
	if c.Scheduler.SendReturnReminders == "" {
		c.Scheduler.SendReturnReminders = "0 0 8 * * *" // 8 AM UTC
	}
	if c.Scheduler.ReportAvailabilityDrift == "" {
		c.Scheduler.ReportAvailabilityDrift = "0 15 * * * *" // hourly
	}
	if c.Scheduler.ExportSnapshot == "" {
		c.Scheduler.ExportSnapshot = "0 0 2 * * *" // 2 AM UTC
	}
	if c.Scheduler.CheckStoreHealth == "" {
		c.Scheduler.CheckStoreHealth = "*/30 * * * * *"
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Store.Database.User,
		c.Store.Database.Password,
		c.Store.Database.Host,
		c.Store.Database.Port,
		c.Store.Database.Database,
		c.Store.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC health server address, or "" when disabled
func (c *Config) GetGRPCAddress() string {
	if c.Server.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}
