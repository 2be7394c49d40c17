// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/akaramanis/signalbridge/internal/utils"
)

// Config holds application configuration
type Config struct {
	DataDir              string // Base directory for all runtime files (always absolute)
	Port                 int
	LogLevel             string
	DevMode              bool
	TelegramBotToken     string   // Bot API token; the Telegram source is disabled when empty
	TelegramChannels     []string // Channel usernames to monitor; overrides the extraction config list
	ExtractionConfigPath string // YAML file with extraction policy (weights, aliases, channels)
	SnapshotPath         string // Signal store snapshot file
	ArchiveDBPath        string // SQLite archive ledger
	CSVPath              string // Accepted-signal CSV sink
	ErrorLogPath         string // Extraction-error JSONL sink
	MaxSignalAgeHours    int    // Store entries older than this are swept
	SweepSchedule        string // cron spec for the expiry sweep job
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("SIGNALBRIDGE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:              absDataDir,
		Port:                 getEnvAsInt("PORT", 4726),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		TelegramBotToken:     getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChannels:     utils.ParseCSV(getEnv("TELEGRAM_CHANNELS", "")),
		ExtractionConfigPath: getEnv("EXTRACTION_CONFIG_PATH", filepath.Join(absDataDir, "extraction.yaml")),
		SnapshotPath:         getEnv("SNAPSHOT_PATH", filepath.Join(absDataDir, "signals.json")),
		ArchiveDBPath:        getEnv("ARCHIVE_DB_PATH", filepath.Join(absDataDir, "archive.db")),
		CSVPath:              getEnv("CSV_OUTPUT_PATH", filepath.Join(absDataDir, "signals.csv")),
		ErrorLogPath:         getEnv("ERROR_LOG_PATH", filepath.Join(absDataDir, "extraction_errors.jsonl")),
		MaxSignalAgeHours:    getEnvAsInt("MAX_SIGNAL_AGE_HOURS", 24),
		SweepSchedule:        getEnv("SWEEP_SCHEDULE", "@every 10m"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MaxSignalAgeHours <= 0 {
		return fmt.Errorf("MAX_SIGNAL_AGE_HOURS must be positive, got %d", c.MaxSignalAgeHours)
	}
	return nil
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
