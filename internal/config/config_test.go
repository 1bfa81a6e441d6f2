package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
server:
  port: 8080
jwt:
  secret: "0123456789abcdef0123456789abcdef"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, StoreDriverCSV, cfg.Store.Driver)
	assert.Equal(t, "data", cfg.Store.DataDir)
	assert.Equal(t, 60, cfg.JWT.TokenExpiryMinutes)
	assert.Equal(t, "log", cfg.Email.Driver)
	assert.Equal(t, "fs", cfg.Storage.Type)
	assert.Equal(t, AvailabilityOverride, cfg.Availability.Mode)
	assert.Equal(t, 50, cfg.Seed.ToolCount)
	assert.Equal(t, "0 0 8 * * *", cfg.Scheduler.SendReturnReminders)
	assert.Equal(t, "", cfg.GetGRPCAddress())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("AVAILABILITY_MODE", "derived")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, StoreDriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.Store.SQLitePath)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, AvailabilityDerived, cfg.Availability.Mode)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, ":9999", cfg.GetServerAddress())
}

func TestValidate_Errors(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			JWT:    JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
		}
	}

	t.Run("ShortSecret", func(t *testing.T) {
		cfg := base()
		cfg.JWT.Secret = "short"
		assert.ErrorContains(t, cfg.Validate(), "at least 32")
	})

	t.Run("UnknownDriver", func(t *testing.T) {
		cfg := base()
		cfg.Store.Driver = "mongo"
		assert.ErrorContains(t, cfg.Validate(), "unknown store driver")
	})

	t.Run("PostgresNeedsHost", func(t *testing.T) {
		cfg := base()
		cfg.Store.Driver = StoreDriverPostgres
		assert.ErrorContains(t, cfg.Validate(), "database host")
	})

	t.Run("SendgridNeedsKey", func(t *testing.T) {
		cfg := base()
		cfg.Email.Driver = "sendgrid"
		assert.ErrorContains(t, cfg.Validate(), "api key")
	})

	t.Run("UnknownAvailabilityMode", func(t *testing.T) {
		cfg := base()
		cfg.Availability.Mode = "sometimes"
		assert.ErrorContains(t, cfg.Validate(), "availability mode")
	})
}

func TestPostgresConnectionString(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Database: DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Database: "toolshare", SSLMode: "disable",
	}}}
	assert.Equal(t, "postgres://u:p@db:5432/toolshare?sslmode=disable", cfg.GetDatabaseConnectionString())
}

func TestGetSecurityLevel(t *testing.T) {
	assert.Equal(t, SecurityPublic, GetSecurityLevel("Login"))
	assert.Equal(t, SecuritySession, GetSecurityLevel("CreateBooking"))
	assert.Equal(t, SecuritySession, GetSecurityLevel("SomethingNew"))
}
