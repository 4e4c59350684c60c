package source

import (
	"context"
	"time"

	"github.com/bassista/go_mirror/internal/config"
	"github.com/bassista/go_mirror/internal/payload"
)

// StaticSource publishes a fixed payload taken from configuration.
// It is useful while real upstreams are not available to execute tests
// or other development tasks.
type StaticSource struct {
	name      string
	interval  time.Duration
	jitter    time.Duration
	value     any
	secondary any
	tertiary  any
}

func NewStaticSource(cfg config.SourceConfig) *StaticSource {
	return &StaticSource{
		name:      cfg.Key,
		interval:  cfg.Interval,
		jitter:    cfg.Jitter,
		value:     cfg.Value,
		secondary: cfg.Secondary,
		tertiary:  cfg.Tertiary,
	}
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) Interval() time.Duration { return s.interval }

func (s *StaticSource) Jitter() time.Duration { return s.jitter }

func (s *StaticSource) Fetch(_ context.Context) (*payload.Payload, error) {
	p := payload.New(s.value)
	p.Secondary = s.secondary
	p.Tertiary = s.tertiary
	return p, nil
}
