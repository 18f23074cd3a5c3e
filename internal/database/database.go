package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/sjperalta/parktime-api/internal/config"
	pkgLogger "github.com/sjperalta/parktime-api/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// Connect opens the configured database and verifies the connection
func Connect(cfg config.DatabaseConfig, environment string) (*gorm.DB, error) {
	// Configure GORM logger
	logLevel := logger.Warn
	if environment == "development" {
		logLevel = logger.Info
	}

	gormConfig := newGormConfig(pkgLogger.NewGormLogger(logLevel, 200*time.Millisecond))

	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.URL)
		gormConfig.PrepareStmt = true // Cache prepared statements
	case config.DriverSQLite:
		dialector = sqliteDialector(cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying SQL database
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	// Verify connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// OpenSQLite opens a SQLite database file with the pure-Go driver. Used for local
// runs and tests.
func OpenSQLite(path string) (*gorm.DB, error) {
	return gorm.Open(sqliteDialector(path), newGormConfig(logger.Discard))
}

func newGormConfig(l logger.Interface) *gorm.Config {
	return &gorm.Config{
		Logger:                 l,
		SkipDefaultTransaction: true, // Improve performance
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// sqliteDialector enables foreign keys and WAL, and stores timestamps in a
// lexically sortable layout so range filters compare correctly.
func sqliteDialector(path string) gorm.Dialector {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
	}
	return sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        dsn,
	}
}
