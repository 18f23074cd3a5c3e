package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/parktime")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 8*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, 100, cfg.AuditDefaultLimit)
	assert.Equal(t, devSessionSecret, cfg.Session.Secret)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.EqualError(t, err, "DATABASE_URL is required")
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/parktime")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	assert.EqualError(t, err, "SESSION_SECRET is required in production")
}

func TestLoadFromYAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\ndatabase:\n  driver: sqlite\nsession:\n  ttl: 2h\n"), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "parktime.db"))
	t.Setenv("SESSION_TTL", "30m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := &Config{
		Database:          DatabaseConfig{Driver: "mysql", URL: "x"},
		Session:           SessionConfig{TTL: time.Hour},
		AuditDefaultLimit: 10,
	}
	assert.Error(t, cfg.Validate())
}
