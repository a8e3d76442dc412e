package subsample

import "errors"

// Common errors returned by the subsampler.
var (
	// ErrNegativeOffset indicates a decimation offset below zero.
	ErrNegativeOffset = errors.New("offset must be non-negative")

	// ErrOutputTooLarge indicates a repetition whose row count overflows int.
	ErrOutputTooLarge = errors.New("output matrix too large")

	// ErrKeyNotFound indicates the parameter lookup has no entry for a key.
	// Lookups wrap it so callers can test with errors.Is.
	ErrKeyNotFound = errors.New("key not found")

	// ErrDimensionMismatch indicates inconsistent matrix dimensions.
	ErrDimensionMismatch = errors.New("matrix dimension mismatch")
)
