// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aristath/tradepulse/internal/analytics"
	"github.com/aristath/tradepulse/internal/orchestrator"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the ledger database, always absolute
	Port     int
	LogLevel string
	DevMode  bool

	// WorkerEnabled selects the compute bridge mode. When false every
	// compute runs inline on the caller's goroutine.
	WorkerEnabled bool

	// Debounce is the settle window before a compute dispatches.
	Debounce time.Duration

	// CacheSize bounds the analytics result cache.
	CacheSize int

	// Analytics are the default pipeline settings.
	Analytics analytics.Settings
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TRADEPULSE_DATA_DIR", "")
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

	debounceMs := getEnvAsInt("ANALYTICS_DEBOUNCE_MS", int(orchestrator.DefaultDebounce/time.Millisecond))
	if debounceMs < 0 {
		debounceMs = 0
	}

	cfg := &Config{
		DataDir:       absDataDir,
		Port:          getEnvAsInt("PORT", 8080),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		WorkerEnabled: getEnvAsBool("ANALYTICS_WORKER", true),
		Debounce:      time.Duration(debounceMs) * time.Millisecond,
		CacheSize:     getEnvAsInt("ANALYTICS_CACHE_SIZE", orchestrator.DefaultCacheSize),
		Analytics: analytics.Settings{
			MCRuns:         getEnvAsInt("ANALYTICS_MC_RUNS", 1000),
			RiskFreeRate:   getEnvAsFloat("ANALYTICS_RISK_FREE_RATE", 0),
			StartingEquity: getEnvAsFloat("ANALYTICS_STARTING_EQUITY", 10_000),
			RuinFloorPct:   getEnvAsFloat("ANALYTICS_RUIN_FLOOR_PCT", 0),
			Seed:           int64(getEnvAsInt("ANALYTICS_SEED", 0)),
		},
	}
	cfg.Analytics = cfg.Analytics.Normalized()

	return cfg, nil
}

// LedgerPath returns the path of the trade ledger database.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

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
