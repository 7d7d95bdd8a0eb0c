// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"mainnet\", \"testnet\", or \"regtest\")")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrInvalidMaxBlockBytes indicates the block size ceiling is zero.
	ErrInvalidMaxBlockBytes = errors.New("config: max_block_bytes must be positive")

	// ErrInvalidWorkers indicates the verification worker count is below one.
	ErrInvalidWorkers = errors.New("config: workers must be at least 1")

	// ErrInvalidBanDuration indicates the ban duration is not positive.
	ErrInvalidBanDuration = errors.New("config: ban_duration must be positive")

	// ErrInvalidMaxDeferred indicates the deferred pool bound is negative.
	ErrInvalidMaxDeferred = errors.New("config: max_deferred must not be negative")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigFile indicates the configuration file could not be parsed.
	ErrInvalidConfigFile = errors.New("config: invalid configuration file")
)
