package fscache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bassista/go_mirror/internal/logger"
)

// Func is the shape of a cacheable fetch: one argument bundle in, one
// JSON-encodable result out.
type Func[A, R any] func(ctx context.Context, args A) (R, error)

type wrapSettings[A any] struct {
	keyFn func(A) string
}

// WrapOption customizes one Wrap call.
type WrapOption[A any] func(*wrapSettings[A]) error

// WithKeyFunc replaces the default argument digest with a caller-provided
// projection. The returned string is hashed, so callers can leave identity
// fields (widget instance names and the like) out of the key and have equally
// configured instances share one set of entries.
func WithKeyFunc[A any](fn func(A) string) WrapOption[A] {
	return func(s *wrapSettings[A]) error {
		if fn == nil {
			return errors.New("key function is nil")
		}
		s.keyFn = fn
		return nil
	}
}

// Wrap returns a function equivalent to fn whose results are persisted on
// disk for lifetime. A call first looks for a valid cached entry; on a miss
// it invokes fn, stores the result, and returns it. Cache trouble is never
// the caller's problem: corrupt entries become misses and a failed write
// still returns the freshly computed result.
//
// Each function name may be wrapped at most once per cache; a second Wrap
// with the same name is a configuration error.
func Wrap[A, R any](c *Cache, name string, lifetime time.Duration, fn Func[A, R], opts ...WrapOption[A]) (Func[A, R], error) {
	if c == nil {
		return nil, errors.New("cache is nil")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidLifetime, lifetime)
	}
	if fn == nil {
		return nil, errors.New("wrapped function is nil")
	}

	var settings wrapSettings[A]
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, err
		}
	}

	if err := c.claim(name); err != nil {
		return nil, err
	}

	return func(ctx context.Context, args A) (R, error) {
		var digest string
		if settings.keyFn != nil {
			digest = hashString(settings.keyFn(args))
		} else {
			d, err := hashArgs(args)
			if err != nil {
				logger.WithComponent("fscache").Warnf("cannot derive cache key for %s, bypassing cache: %v", name, err)
				return fn(ctx, args)
			}
			digest = d
		}

		var cached R
		if c.lookup(name, digest, lifetime, &cached) {
			return cached, nil
		}

		out, err := fn(ctx, args)
		if err != nil {
			var zero R
			return zero, err
		}
		c.store(name, digest, out)
		return out, nil
	}, nil
}

// validateName rejects names that cannot safely appear in a cache filename.
// Underscores are fine: filenames are parsed from the right.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
