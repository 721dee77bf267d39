package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

type Config struct {
	Driver   string
	URL      string // overrides the discrete postgres fields when set
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	Path     string // sqlite3 database file
}

// DSN builds the driver connection string. The password is never logged.
func (c Config) DSN() (string, error) {
	switch c.Driver {
	case DriverPostgres:
		if c.URL != "" {
			return c.URL, nil
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.DBName), nil
	case DriverSQLite:
		if c.Path == "" {
			return "", fmt.Errorf("sqlite3 driver needs a database path")
		}
		return fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL", c.Path), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// Initialize opens and pings a database connection.
func Initialize(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	slog.Info("connecting to database", "driver", cfg.Driver, "host", cfg.Host, "name", cfg.DBName, "path", cfg.Path)

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// one writer at a time; concurrent upserts queue behind the busy timeout
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	return db, nil
}
