package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string `yaml:"port" env:"PORT" env-default:"8080"`
	Environment string `yaml:"environment" env:"ENVIRONMENT" env-default:"development"`

	// Proxies whose X-Forwarded-For header is honoured by ClientIP()
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES" env-separator:","`

	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Auth     AuthConfig     `yaml:"auth"`

	// Default page size of audit queries
	AuditDefaultLimit int `yaml:"audit_default_limit" env:"AUDIT_DEFAULT_LIMIT" env-default:"100"`

	// Sentry
	SentryDSN string `yaml:"-" env:"SENTRY_DSN"`
}

// DatabaseConfig selects the driver and pool sizing
type DatabaseConfig struct {
	Driver       string `yaml:"driver" env:"DATABASE_DRIVER" env-default:"postgres"` // postgres | sqlite
	URL          string `yaml:"-" env:"DATABASE_URL"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"5"`
}

// SessionConfig controls session lifetime and cookie transport
type SessionConfig struct {
	TTL          time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"8h"`
	CookieName   string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"parktime_session"`
	Secret       string        `yaml:"-" env:"SESSION_SECRET"`
	CookieSecure bool          `yaml:"cookie_secure" env:"COOKIE_SECURE" env-default:"false"`
}

// AuthConfig controls password hashing and login throttling
type AuthConfig struct {
	BcryptCost             int     `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"12"`
	LoginRatePerMinute     float64 `yaml:"login_rate_per_minute" env:"LOGIN_RATE_PER_MINUTE" env-default:"10"`
	LoginRateBurst         int     `yaml:"login_rate_burst" env:"LOGIN_RATE_BURST" env-default:"5"`
	BootstrapAdminPassword string  `yaml:"-" env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const devSessionSecret = "dev-session-secret-change-in-production"

// Load reads configuration from CONFIG_PATH (YAML, optional) and environment variables.
// Environment variables take precedence over the file.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Set default session secret for development
	if cfg.Session.Secret == "" {
		cfg.Session.Secret = devSessionSecret
	}

	return cfg, nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.Database.Driver != DriverPostgres && c.Database.Driver != DriverSQLite {
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	if c.Session.Secret == "" && c.IsProduction() {
		return errors.New("SESSION_SECRET is required in production")
	}
	if c.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.AuditDefaultLimit <= 0 {
		return errors.New("AUDIT_DEFAULT_LIMIT must be positive")
	}
	return nil
}

// IsProduction returns true when running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
