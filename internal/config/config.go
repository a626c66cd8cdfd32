// Package config handles application configuration from environment variables
// and the BLE protocol file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultArrivalURL = "http://ws.bus.go.kr/api/rest/arrive/getArrInfoByRoute"

// ConfigurationError reports a missing or invalid setting. It is fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// Config holds all application configuration.
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	StopsFile     string
	HistoryDB     string
	BusAPIKey     string
	ArrivalURL    string
	AlertsFeedURL string
	CacheTTL      time.Duration
	HTTPTimeout   time.Duration
	BLEConfigPath string
	BLE           BLEConfig
}

// Load reads .env (if present), environment variables and the BLE protocol file.
func Load() (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "3000"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		StopsFile:     getEnv("STOPS_FILE", "data/bus_route_stops.csv"),
		HistoryDB:     getEnv("HISTORY_DB", "data/history.db"),
		BusAPIKey:     getEnv("BUS_API_KEY", ""),
		ArrivalURL:    getEnv("BUS_ARRIVAL_URL", defaultArrivalURL),
		AlertsFeedURL: getEnv("ALERTS_FEED_URL", ""),
		CacheTTL:      getDurationEnv("CACHE_TTL_SECONDS", 30) * time.Second,
		HTTPTimeout:   getDurationEnv("HTTP_TIMEOUT_SECONDS", 10) * time.Second,
		BLEConfigPath: getEnv("BLE_CONFIG", "ble.yml"),
	}

	ble, err := LoadBLE(cfg.BLEConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.BLE = ble

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.StopsFile == "" {
		return &ConfigurationError{Field: "STOPS_FILE", Reason: "required"}
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return &ConfigurationError{Field: "PORT", Reason: "must be numeric"}
	}
	return c.BLE.Validate()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds)
		}
	}
	return time.Duration(defaultSeconds)
}
