package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Import        ImportConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	AllowedOrigins     []string
	MaxUploadMB        int
	RateLimitPerSecond int
	RateLimitBurst     int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

// ImportConfig controls document parsing and batch imports
type ImportConfig struct {
	SchoolYear      int
	SubjectOrder    []string // Overrides the grade column order when set
	NameBufferCap   int
	UploadDir       string
	DocumentTimeout time.Duration
	Workers         int
	CronSchedule    string // Empty disables the upload directory scan
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	LogLevel       string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins:     getEnvAsList("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			MaxUploadMB:        getEnvAsInt("SERVER_MAX_UPLOAD_MB", 20),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 20),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 40),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "report-cards"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("POSTGRES_MAX_CONNS", 10),
			MinConns: getEnvAsInt("POSTGRES_MIN_CONNS", 2),
		},
		Import: ImportConfig{
			SchoolYear:      getEnvAsInt("IMPORT_SCHOOL_YEAR", 2025),
			SubjectOrder:    getEnvAsList("IMPORT_SUBJECT_ORDER", nil),
			NameBufferCap:   getEnvAsInt("IMPORT_NAME_BUFFER_CAP", 3),
			UploadDir:       getEnv("IMPORT_UPLOAD_DIR", "./uploads"),
			DocumentTimeout: getEnvAsDuration("IMPORT_DOCUMENT_TIMEOUT", 30*time.Second),
			Workers:         getEnvAsInt("IMPORT_WORKERS", 0),
			CronSchedule:    getEnv("IMPORT_CRON_SCHEDULE", ""),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
		},
	}

	if cfg.Import.SchoolYear < 1900 {
		return nil, fmt.Errorf("IMPORT_SCHOOL_YEAR %d is out of range", cfg.Import.SchoolYear)
	}
	if cfg.Import.UploadDir == "" {
		return nil, errors.New("IMPORT_UPLOAD_DIR is required")
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

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, dropping blank entries
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
