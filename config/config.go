// Package config loads keepsake settings from TOML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Logging  LoggingConfig  `toml:"logging"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	Slots    SlotsConfig    `toml:"slots"`
	Stress   StressConfig   `toml:"stress"`
}

type LoggingConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" validate:"oneof=json console"`
}

type SnapshotConfig struct {
	Codec string `toml:"codec" validate:"oneof=json yaml"`
	Gzip  bool   `toml:"gzip"`
	// Atomic writes go through a temp file and a rename.
	Atomic bool `toml:"atomic"`
}

// CodecName returns the codec name as accepted by snapshot.ByName.
func (c SnapshotConfig) CodecName() string {
	if c.Gzip {
		return c.Codec + "+gzip"
	}
	return c.Codec
}

type SlotsConfig struct {
	Path       string `toml:"path" validate:"required_without=InMemory"`
	InMemory   bool   `toml:"in_memory"`
	SyncWrites bool   `toml:"sync_writes"`
}

type StressConfig struct {
	Entities  int           `toml:"entities" validate:"gt=0"`
	Duration  time.Duration `toml:"duration" validate:"gt=0"`
	SaveEvery int           `toml:"save_every" validate:"gte=0"`
	Children  int           `toml:"children" validate:"gte=0"`
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Snapshot: SnapshotConfig{
			Codec:  "json",
			Atomic: true,
		},
		Slots: SlotsConfig{
			Path:       "slots",
			SyncWrites: true,
		},
		Stress: StressConfig{
			Entities:  10000,
			Duration:  10 * time.Second,
			SaveEvery: 60,
			Children:  2,
		},
	}
}
