package fscache

import "errors"

var (
	// ErrInvalidName is returned when a function name cannot be used in a cache filename.
	ErrInvalidName = errors.New("invalid cache function name")

	// ErrInvalidLifetime is returned when a wrap is requested with a non-positive lifetime.
	ErrInvalidLifetime = errors.New("cache lifetime must be positive")

	// ErrAlreadyWrapped is returned when the same function name is wrapped twice
	// on one cache. Each identity must be wrapped exactly once.
	ErrAlreadyWrapped = errors.New("function already wrapped")
)
