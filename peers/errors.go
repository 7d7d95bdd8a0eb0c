package peers

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("peers: required parameter is nil")

	// ErrEmptyPeer indicates the peer identifier is empty.
	ErrEmptyPeer = errors.New("peers: empty peer id")

	// ErrBanNotFound indicates the peer has no ban record.
	ErrBanNotFound = errors.New("peers: ban not found")
)
