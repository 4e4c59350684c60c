package datarepo

import (
	"errors"
	"time"

	"github.com/bassista/go_mirror/internal/telemetry"
)

// Option customizes a Repository at construction time.
type Option func(*Repository) error

// WithCollector routes refresh telemetry to the provided collector.
func WithCollector(c telemetry.Collector) Option {
	return func(r *Repository) error {
		if c == nil {
			return errors.New("collector is nil")
		}
		r.collector = c
		return nil
	}
}

// WithStopTimeout bounds how long Stop waits for in-flight refreshes.
func WithStopTimeout(d time.Duration) Option {
	return func(r *Repository) error {
		if d <= 0 {
			return errors.New("stop timeout must be positive")
		}
		r.stopTimeout = d
		return nil
	}
}
