// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultMaxBlockBytes is the serialized block size ceiling.
	DefaultMaxBlockBytes = 597_000

	// DefaultBanDuration is how long a peer relaying a malformed transaction is refused.
	DefaultBanDuration = 24 * time.Hour

	// DefaultMaxDeferred bounds the pool of transactions waiting for chain state.
	DefaultMaxDeferred = 1000

	configFileName = "config.yaml"
)

// Config holds the verifier node settings.
type Config struct {
	DataDir       string        `mapstructure:"data_dir"`
	Network       string        `mapstructure:"network"`
	LogLevel      string        `mapstructure:"log_level"`
	MaxBlockBytes uint64        `mapstructure:"max_block_bytes"`
	Workers       int           `mapstructure:"workers"`
	BanDuration   time.Duration `mapstructure:"ban_duration"`
	MaxDeferred   int           `mapstructure:"max_deferred"`
}

// DefaultDataDir returns ~/.txverify, or ./.txverify when the home directory
// cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".txverify"
	}
	return filepath.Join(home, ".txverify")
}

// ConfigPath returns the configuration file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, configFileName)
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		DataDir:       DefaultDataDir(),
		Network:       "mainnet",
		LogLevel:      "info",
		MaxBlockBytes: DefaultMaxBlockBytes,
		Workers:       runtime.NumCPU(),
		BanDuration:   DefaultBanDuration,
		MaxDeferred:   DefaultMaxDeferred,
	}
}

// LoadConfig reads the configuration file at path. The format follows the
// file extension (yaml, toml, json, ...); files without one are read as yaml.
// Keys missing from the file keep their default values and unknown keys are
// ignored.
func LoadConfig(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
	}

	v := newViper(path)
	for key, value := range configMap(DefaultConfig()) {
		v.SetDefault(key, value)
	}
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path, creating parent directories as needed. The
// format follows the file extension, which must be present.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	v := newViper(path)
	for key, value := range configMap(cfg) {
		v.Set(key, value)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	if ext := filepath.Ext(path); ext == "" {
		v.SetConfigType("yaml")
	} else {
		v.SetConfigType(strings.TrimPrefix(ext, "."))
	}
	return v
}

func configMap(cfg Config) map[string]interface{} {
	return map[string]interface{}{
		"data_dir":        cfg.DataDir,
		"network":         cfg.Network,
		"log_level":       cfg.LogLevel,
		"max_block_bytes": cfg.MaxBlockBytes,
		"workers":         cfg.Workers,
		"ban_duration":    cfg.BanDuration.String(),
		"max_deferred":    cfg.MaxDeferred,
	}
}
