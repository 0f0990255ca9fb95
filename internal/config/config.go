// Package config defines the settings recognized by the compression core
// and CLI, loaded from YAML with struct-tag defaults and overridable by
// environment variables.
package config

import (
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/FairForge/hlc/internal/herrors"
)

// Config is the full set of options recognized by the core and CLI.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Chunker ChunkerConfig `yaml:"chunker"`
	Engine  EngineConfig  `yaml:"engine"`
}

// ServerConfig covers the ambient HTTP surface (metrics endpoint).
type ServerConfig struct {
	MetricsPort int    `yaml:"metrics_port" default:"0"` // 0 disables the metrics endpoint
	LogLevel    string `yaml:"log_level" default:"info"`
}

// ChunkerConfig selects and bounds the chunking policy.
type ChunkerConfig struct {
	Policy     string `yaml:"policy" default:"adaptive"` // "fixed" | "adaptive"
	Size       int    `yaml:"size" default:"65536"`      // fixed policy
	SizeMin    int    `yaml:"size_min" default:"1024"`   // adaptive policy
	SizeTarget int    `yaml:"size_target" default:"8192"`
	SizeMax    int    `yaml:"size_max" default:"65536"`
}

// EngineConfig covers the transform/entropy/scheduling/container options.
type EngineConfig struct {
	Mode                       string `yaml:"mode" default:"balanced"` // "balanced" | "max" | "fast"
	ChecksumType               string `yaml:"checksum_type" default:"crc32"`
	Threads                    int    `yaml:"threads" default:"0"` // 0 = runtime.NumCPU()
	WriteIndex                 bool   `yaml:"write_index" default:"false"`
	StoreRawExpansionThreshold uint32 `yaml:"store_raw_expansion_threshold_permille" default:"20"`
}

// LoadFromFile reads and parses a YAML config file at path. A missing file
// is not an error: LoadFromFile returns the zero Config, leaving callers to
// apply WithDefaults.
func LoadFromFile(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, herrors.Wrap(herrors.IoError, "config: read file", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, herrors.Wrap(herrors.ConfigError, "config: parse yaml", err)
	}
	return cfg, nil
}

// WithDefaults resolves zero-valued engine fields, and the chunker fields the
// selected policy uses, to their documented defaults, including the one
// genuinely runtime-dependent default (thread count). Server fields are left
// as given.
func (c Config) WithDefaults() Config {
	if c.Engine.Threads <= 0 {
		c.Engine.Threads = runtime.NumCPU()
	}
	if c.Engine.Mode == "" {
		c.Engine.Mode = "balanced"
	}
	if c.Engine.ChecksumType == "" {
		c.Engine.ChecksumType = "crc32"
	}
	if c.Engine.StoreRawExpansionThreshold == 0 {
		c.Engine.StoreRawExpansionThreshold = 20
	}
	if c.Chunker.Policy == "" {
		c.Chunker.Policy = "adaptive"
	}
	if c.Chunker.Policy == "fixed" && c.Chunker.Size == 0 {
		c.Chunker.Size = 65536
	}
	if c.Chunker.Policy == "adaptive" {
		if c.Chunker.SizeMin == 0 {
			c.Chunker.SizeMin = 1024
		}
		if c.Chunker.SizeMax == 0 {
			c.Chunker.SizeMax = 65536
		}
		if c.Chunker.SizeTarget == 0 {
			c.Chunker.SizeTarget = 8192
		}
	}
	return c
}

// Validate enforces the ConfigError cases the core documents.
func (c Config) Validate() error {
	if c.Engine.Threads <= 0 {
		return herrors.New(herrors.ConfigError, "config: threads must be positive")
	}
	switch c.Chunker.Policy {
	case "fixed":
		if c.Chunker.Size <= 0 {
			return herrors.New(herrors.ConfigError, "config: chunker.size must be positive for the fixed policy")
		}
	case "adaptive":
		if c.Chunker.SizeMin <= 0 || c.Chunker.SizeMax <= 0 || c.Chunker.SizeMin > c.Chunker.SizeMax {
			return herrors.New(herrors.ConfigError, "config: chunker.size_min/size_max are invalid")
		}
	default:
		return herrors.New(herrors.ConfigError, "config: unknown chunker policy "+c.Chunker.Policy)
	}
	switch c.Engine.Mode {
	case "balanced", "max", "fast":
	default:
		return herrors.New(herrors.ConfigError, "config: unknown engine mode "+c.Engine.Mode)
	}
	return nil
}
