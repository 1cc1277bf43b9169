package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port         string
	Env          string // development, staging, production
	APIRateLimit int    // mutation requests per client per minute (Redis only)

	// Ranking tuning profile (YAML). Empty means built-in defaults.
	TuningFile string

	// Dataset acquisition
	Dataset DatasetConfig

	// Database (optional dataset source)
	Database DatabaseConfig

	// Redis (optional dataset snapshot cache)
	Redis RedisConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// DatasetConfig describes where the record table comes from.
// Sources are tried in order; the first reachable one wins.
type DatasetConfig struct {
	Sources        []string // file paths, http(s) URLs, or "postgres"
	Delimiter      string   // "" = auto-detect
	Query          string   // SQL used by the postgres source
	CacheTTL       time.Duration
	HTTPRateLimit  float64 // requests per second for remote sources
	ReloadSchedule string  // cron expression, "" disables scheduled reloads
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port:         getEnv("PORT", "8089"),
		Env:          getEnv("ENV", "development"),
		APIRateLimit: getEnvAsInt("API_RATE_LIMIT", 120),
		TuningFile:   getEnv("TUNING_FILE", ""),

		Dataset: DatasetConfig{
			Sources:        getEnvAsList("DATASET_SOURCES", []string{"data/screener.csv"}),
			Delimiter:      getEnv("DATASET_DELIMITER", ""),
			Query:          getEnv("DATASET_QUERY", "SELECT * FROM market.screener_snapshot"),
			CacheTTL:       getEnvAsDuration("DATASET_CACHE_TTL", "10m"),
			HTTPRateLimit:  getEnvAsFloat("HTTP_RATE_LIMIT", 2),
			ReloadSchedule: getEnv("RELOAD_SCHEDULE", ""),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 4),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if len(c.Dataset.Sources) == 0 {
		return fmt.Errorf("DATASET_SOURCES must list at least one source")
	}

	// postgres source needs a connection string
	for _, src := range c.Dataset.Sources {
		if src == "postgres" && c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATASET_SOURCES includes postgres")
		}
	}

	if c.APIRateLimit < 1 {
		return fmt.Errorf("API_RATE_LIMIT must be >= 1")
	}

	if c.Dataset.HTTPRateLimit <= 0 {
		return fmt.Errorf("HTTP_RATE_LIMIT must be > 0")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma-separated value, dropping empty entries
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
	return out
}
