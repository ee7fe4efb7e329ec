// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir             string        // Base directory for all databases (always absolute)
	Port                int           // HTTP listen port
	LogLevel            string        // zerolog level name
	DevMode             bool          // Pretty logging, permissive CORS
	AnalyzerTimeout     time.Duration // Per-analyzer timeout inside the coordinator
	ComparisonWorkers   int           // Concurrent pipelines during comparison
	RiskFreeRatePct     float64       // Annualized risk-free rate used by the Sharpe calculation
	SeriesCacheTTL      time.Duration // TTL for cached return series
	DeepDiveSessionTTL  time.Duration // Idle TTL for deep-dive handoff sessions
	ReviewIntervalDays  int           // Days until a produced recommendation is due for review
	Backup              *BackupConfig
}

// BackupConfig holds S3 backup configuration for the audit store.
// Backups are disabled unless a bucket is configured.
type BackupConfig struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string // Optional custom endpoint (S3-compatible stores)
	AccessKeyID     string
	SecretAccessKey string
	RetainCount     int // Remote backups to keep
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("SUITABILITY_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:            absDataDir,
		Port:               getEnvAsInt("PORT", 8040),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		AnalyzerTimeout:    getEnvAsDuration("ANALYZER_TIMEOUT", 5*time.Second),
		ComparisonWorkers:  getEnvAsInt("COMPARISON_WORKERS", 4),
		RiskFreeRatePct:    getEnvAsFloat("RISK_FREE_RATE_PCT", 2.0),
		SeriesCacheTTL:     getEnvAsDuration("SERIES_CACHE_TTL", time.Hour),
		DeepDiveSessionTTL: getEnvAsDuration("DEEPDIVE_SESSION_TTL", 30*time.Minute),
		ReviewIntervalDays: getEnvAsInt("REVIEW_INTERVAL_DAYS", 90),
		Backup:             loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and sane
func (c *Config) Validate() error {
	if c.AnalyzerTimeout <= 0 {
		return fmt.Errorf("analyzer timeout must be positive, got %s", c.AnalyzerTimeout)
	}
	if c.ComparisonWorkers < 1 {
		return fmt.Errorf("comparison workers must be >= 1, got %d", c.ComparisonWorkers)
	}
	if c.Backup.Enabled && c.Backup.Bucket == "" {
		return fmt.Errorf("backup enabled but BACKUP_S3_BUCKET is empty")
	}
	return nil
}

// loadBackupConfig loads S3 backup configuration from environment variables
func loadBackupConfig() *BackupConfig {
	bucket := getEnv("BACKUP_S3_BUCKET", "")
	return &BackupConfig{
		Enabled:         bucket != "",
		Bucket:          bucket,
		Region:          getEnv("BACKUP_S3_REGION", "auto"),
		Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
		AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
		RetainCount:     getEnvAsInt("BACKUP_RETAIN_COUNT", 14),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
