package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIAddr         string
	BaseURL         string
	StoragePath     string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
	LogLevel        string
	LogPretty       bool
}

func Load() (*Config, error) {
	maxUpload, err := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err)
	}

	shutdownTimeout, err := time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	logPretty, err := strconv.ParseBool(getEnv("LOG_PRETTY", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_PRETTY: %w", err)
	}

	cfg := &Config{
		APIAddr:         getEnv("API_ADDR", ":8080"),
		BaseURL:         getEnv("BASE_URL", "http://localhost:8080"),
		StoragePath:     getEnv("STORAGE_PATH", "images"),
		MaxUploadBytes:  maxUpload,
		ShutdownTimeout: shutdownTimeout,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogPretty:       logPretty,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.StoragePath == "" {
		return fmt.Errorf("STORAGE_PATH is required")
	}

	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must not be negative")
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be greater than 0")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
