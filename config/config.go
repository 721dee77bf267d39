package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"attendance_app_backend/db"
	"attendance_app_backend/registry"
	"attendance_app_backend/roster"
)

const DriverMongo = "mongo"

type Config struct {
	Environment string
	ServerPort  string

	DBDriver   string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string
	MongoURI   string
	MongoDB    string

	JWTSecret    string
	AuthDisabled bool

	CatalogFile         string
	CourseMode          registry.Mode
	ReseedCourses       bool
	ImportFailurePolicy roster.FailurePolicy
	UnknownCoursePolicy roster.UnknownCoursePolicy
	MaxUploadMB         int64

	TelemetryEnabled bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  getEnv("PORT", "8080"),
		DBDriver:    getEnv("DB_DRIVER", db.DriverPostgres),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", "attendance"),
		SQLitePath:  getEnv("SQLITE_PATH", "attendance.db"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGO_DB", "attendance"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CatalogFile: getEnv("CATALOG_FILE", ""),
	}

	var err error
	if cfg.DBPort, err = strconv.Atoi(getEnv("DB_PORT", "5432")); err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	if cfg.MaxUploadMB, err = strconv.ParseInt(getEnv("MAX_UPLOAD_MB", "10"), 10, 64); err != nil || cfg.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB %q", os.Getenv("MAX_UPLOAD_MB"))
	}
	if cfg.AuthDisabled, err = getBool("AUTH_DISABLED", false); err != nil {
		return nil, err
	}
	if cfg.ReseedCourses, err = getBool("RESEED_COURSES", false); err != nil {
		return nil, err
	}
	if cfg.TelemetryEnabled, err = getBool("TELEMETRY_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.CourseMode, err = registry.ParseMode(getEnv("COURSE_MODE", string(registry.Fixed))); err != nil {
		return nil, err
	}
	if cfg.ImportFailurePolicy, err = roster.ParseFailurePolicy(getEnv("IMPORT_FAILURE_POLICY", string(roster.Partial))); err != nil {
		return nil, err
	}
	if cfg.UnknownCoursePolicy, err = roster.ParseUnknownCoursePolicy(getEnv("UNKNOWN_COURSE_POLICY", string(roster.Reject))); err != nil {
		return nil, err
	}

	switch cfg.DBDriver {
	case db.DriverPostgres:
		if cfg.DBPassword == "" {
			return nil, errors.New("DB_PASSWORD environment variable is required")
		}
	case db.DriverSQLite, DriverMongo:
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q (want postgres, sqlite3 or mongo)", cfg.DBDriver)
	}

	if cfg.JWTSecret == "" && !cfg.AuthDisabled {
		return nil, errors.New("JWT_SECRET is required unless AUTH_DISABLED=true")
	}

	return cfg, nil
}

// Database returns the database/sql settings for the postgres and sqlite3 drivers.
func (c *Config) Database() db.Config {
	return db.Config{
		Driver:   c.DBDriver,
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		DBName:   c.DBName,
		Path:     c.SQLitePath,
	}
}

func (c *Config) IsProduction() bool { return c.Environment == "production" }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}
