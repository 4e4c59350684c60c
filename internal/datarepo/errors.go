package datarepo

import "errors"

var (
	// ErrEmptyKey is returned when a source is registered with an empty key.
	ErrEmptyKey = errors.New("source key is empty")

	// ErrNilRefreshFunc is returned when a source is registered without a refresh function.
	ErrNilRefreshFunc = errors.New("refresh function is nil")

	// ErrInvalidSchedule is returned for a non-positive interval or a negative jitter.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrAlreadyRegistered is returned when a source key is registered twice.
	ErrAlreadyRegistered = errors.New("source already registered")

	// ErrNotRegistered is returned when an operation references an unknown source key.
	ErrNotRegistered = errors.New("source not registered")
)
