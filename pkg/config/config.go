package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration
type Config struct {
	Database      DatabaseConfig
	Data          DataConfig
	Import        ImportConfig
	Summary       SummaryConfig
	Observability ObservabilityConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DataConfig describes where the import input files live.
type DataConfig struct {
	Dir      string
	Timezone string
}

type ImportConfig struct {
	BatchSize int
	GapFill   bool
	GapStep   time.Duration
}

type SummaryConfig struct {
	CacheTTL    time.Duration
	Month       string // "YYYY-MM", empty = most recent full calendar month
	HolidayFile string // optional CSV overriding the built-in holiday table
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "energy-dev"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Data: DataConfig{
			Dir:      getEnv("DATA_DIR", "data"),
			Timezone: getEnv("DATA_TIMEZONE", "Asia/Tokyo"),
		},
		Import: ImportConfig{
			BatchSize: getEnvAsInt("IMPORT_BATCH_SIZE", 1000),
			GapFill:   getEnvAsBool("IMPORT_GAP_FILL", true),
			GapStep:   time.Duration(getEnvAsInt("IMPORT_GAP_STEP_MINUTES", 30)) * time.Minute,
		},
		Summary: SummaryConfig{
			CacheTTL:    time.Duration(getEnvAsInt("SUMMARY_CACHE_TTL_SECONDS", 3600)) * time.Second,
			Month:       getEnv("SUMMARY_MONTH", ""),
			HolidayFile: getEnv("HOLIDAY_FILE", ""),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", false),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Location resolves the configured timezone, falling back to UTC.
func (c *DataConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
