package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all agent settings, populated from environment variables.
type Config struct {
	// DetectAPIURL is the base address of the remote detection service.
	DetectAPIURL string
	// DetectAPITimeout bounds one detection request. Zero means no
	// application-level timeout (the transport default).
	DetectAPITimeout time.Duration

	HTTPAddr        string
	DataDir         string
	StoreKey        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// LiveDwell is how long a captured frame stays on display before the
	// live session auto-clears back to idle.
	LiveDwell time.Duration

	// Operator position override, used when the host has no geolocation
	// capability of its own. Both must be set together.
	OperatorLat         float64
	OperatorLon         float64
	HasOperatorPosition bool
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	detectTimeout, err := parseDurationEnv("DETECT_API_TIMEOUT", "0s")
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	if shutdownTimeout <= 0 {
		return nil, errors.New("SHUTDOWN_TIMEOUT must be positive")
	}

	liveDwell, err := parseDurationEnv("LIVE_DWELL", "3s")
	if err != nil {
		return nil, err
	}
	if liveDwell <= 0 {
		return nil, errors.New("LIVE_DWELL must be positive")
	}

	cfg := &Config{
		DetectAPIURL:     envOrDefault("DETECT_API_URL", "http://127.0.0.1:5000"),
		DetectAPITimeout: detectTimeout,
		HTTPAddr:         envOrDefault("HTTP_ADDR", ":8080"),
		DataDir:          envOrDefault("DATA_DIR", "data"),
		StoreKey:         envOrDefault("STORE_KEY", "hazard_detections"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,
		LiveDwell:        liveDwell,
	}

	if cfg.DetectAPIURL == "" {
		return nil, errors.New("DETECT_API_URL is required")
	}
	if cfg.StoreKey == "" {
		return nil, errors.New("STORE_KEY is required")
	}
	if cfg.DetectAPITimeout < 0 {
		return nil, errors.New("DETECT_API_TIMEOUT must not be negative")
	}

	if err := loadOperatorPosition(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadOperatorPosition(cfg *Config) error {
	latStr := os.Getenv("OPERATOR_LAT")
	lonStr := os.Getenv("OPERATOR_LON")
	if latStr == "" && lonStr == "" {
		return nil
	}
	if latStr == "" || lonStr == "" {
		return errors.New("OPERATOR_LAT and OPERATOR_LON must be set together")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return fmt.Errorf("invalid OPERATOR_LAT: %w", err)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return fmt.Errorf("invalid OPERATOR_LON: %w", err)
	}

	cfg.OperatorLat = lat
	cfg.OperatorLon = lon
	cfg.HasOperatorPosition = true
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDurationEnv(key, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fallback)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
