package relay

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("relay: required parameter is nil")

	// ErrInvalidConfig indicates a processor setting is out of range.
	ErrInvalidConfig = errors.New("relay: invalid configuration")

	// ErrPeerBanned indicates the submitting peer is currently banned.
	ErrPeerBanned = errors.New("relay: peer is banned")

	// ErrEvicted indicates a deferred transaction was pushed out of a full pool.
	ErrEvicted = errors.New("relay: evicted from deferred pool")
)
