// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "strings"

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.Network != "mainnet" && cfg.Network != "testnet" && cfg.Network != "regtest" {
		return ErrInvalidNetwork
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if cfg.MaxBlockBytes == 0 {
		return ErrInvalidMaxBlockBytes
	}

	if cfg.Workers < 1 {
		return ErrInvalidWorkers
	}

	if cfg.BanDuration <= 0 {
		return ErrInvalidBanDuration
	}

	if cfg.MaxDeferred < 0 {
		return ErrInvalidMaxDeferred
	}

	return nil
}
