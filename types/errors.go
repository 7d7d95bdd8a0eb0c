package types

import "errors"

var (
	// ErrCapacityOverflow indicates a capacity computation exceeded the uint64 range.
	ErrCapacityOverflow = errors.New("types: capacity overflow")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("types: required parameter is nil")

	// ErrInvalidDepType indicates a cell dep type is not recognized.
	ErrInvalidDepType = errors.New("types: invalid dep type")
)
