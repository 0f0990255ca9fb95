package config

import (
	"os"
	"strconv"
)

// LoadFromEnv overlays environment variable overrides onto cfg.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("HLC_METRICS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = p
		}
	}
	if v := os.Getenv("HLC_LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := os.Getenv("HLC_MODE"); v != "" {
		cfg.Engine.Mode = v
	}
	if v := os.Getenv("HLC_CHECKSUM_TYPE"); v != "" {
		cfg.Engine.ChecksumType = v
	}
	if v := os.Getenv("HLC_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Threads = n
		}
	}
	if v := os.Getenv("HLC_WRITE_INDEX"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Engine.WriteIndex = b
		}
	}
	if v := os.Getenv("HLC_CHUNKER_POLICY"); v != "" {
		cfg.Chunker.Policy = v
	}
}

// GetEnvOrDefault returns the environment variable named key, or
// defaultValue if it is unset or empty.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
