// ABOUTME: Configuration for walks, logging, metrics and the serve loop
// ABOUTME: Loaded from an optional YAML file and HEAPTRAV_ environment variables

// Package config loads heaptrav configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap/zapcore"

	"github.com/prateek/heaptrav/trav"
	"github.com/prateek/heaptrav/visited"
)

// EnvPrefix marks environment variables that override file settings.
const EnvPrefix = "HEAPTRAV_"

const maxConfigFileSize = 1024 * 1024

// Config holds the complete heaptrav configuration.
type Config struct {
	Walk    WalkConfig    `koanf:"walk"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Serve   ServeConfig   `koanf:"serve"`
}

// WalkConfig sizes the traversal's work stack and visited set.
type WalkConfig struct {
	ChunkCapacity   int `koanf:"chunk_capacity"`
	MaxChunks       int `koanf:"max_chunks"` // 0 means unlimited
	VisitedCapacity int `koanf:"visited_capacity"`
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `koanf:"addr"` // empty disables the endpoint
}

// ServeConfig configures the signal-driven walk loop.
type ServeConfig struct {
	Snapshot string `koanf:"snapshot"`
	Output   string `koanf:"output"` // directory receiving walk logs
}

// LoadWithFile loads configuration from the YAML file at path, then
// overrides it with environment variables. An empty path skips the file.
//
// Environment variables drop the prefix, are lowercased and split into
// section and field at the first underscore:
//
//	HEAPTRAV_WALK_CHUNK_CAPACITY -> walk.chunk_capacity
//	HEAPTRAV_LOG_LEVEL           -> log.level
func LoadWithFile(path string) (*Config, error) {
	var content []byte
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file %s is %d bytes, limit is %d", path, info.Size(), maxConfigFileSize)
		}
		if content, err = io.ReadAll(f); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return Load(content)
}

// Load parses YAML content (which may be empty) and applies environment
// overrides, defaults and validation.
func Load(content []byte) (*Config, error) {
	k := koanf.New(".")

	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps HEAPTRAV_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Walk.ChunkCapacity == 0 {
		cfg.Walk.ChunkCapacity = trav.DefaultChunkCapacity
	}
	if cfg.Walk.VisitedCapacity == 0 {
		cfg.Walk.VisitedCapacity = visited.DefaultCapacity
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Serve.Output == "" {
		cfg.Serve.Output = "."
	}
}

// Validate checks the configuration for values the walker cannot use.
func (c *Config) Validate() error {
	if c.Walk.ChunkCapacity < 1 {
		return fmt.Errorf("invalid chunk capacity: %d (must be positive)", c.Walk.ChunkCapacity)
	}
	if c.Walk.MaxChunks < 0 {
		return fmt.Errorf("invalid chunk limit: %d (must not be negative)", c.Walk.MaxChunks)
	}
	if c.Walk.VisitedCapacity < 1 {
		return fmt.Errorf("invalid visited capacity: %d (must be positive)", c.Walk.VisitedCapacity)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %q (must be json or console)", c.Log.Format)
	}
	if c.Serve.Output == "" {
		return errors.New("serve output directory required")
	}
	return nil
}
