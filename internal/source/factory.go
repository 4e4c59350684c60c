package source

import (
	"fmt"

	"github.com/bassista/go_mirror/internal/config"
	"github.com/bassista/go_mirror/internal/fscache"
)

const (
	TypeClock  = "clock"
	TypeStatic = "static"
	TypeFeed   = "feed"
	TypeDocker = "docker"
)

// FromConfig creates a Source based on the configured type. The cache is
// only consulted by types that support durable caching.
func FromConfig(cfg config.SourceConfig, cache *fscache.Cache) (Source, error) {
	switch cfg.Type {
	case TypeClock:
		return NewClockSource(cfg), nil
	case TypeStatic:
		return NewStaticSource(cfg), nil
	case TypeFeed:
		return NewFeedSource(cfg, cache)
	case TypeDocker:
		return NewDockerSource(cfg)
	default:
		return nil, fmt.Errorf("unknown source type: %s (supported: %s, %s, %s, %s)", cfg.Type, TypeClock, TypeStatic, TypeFeed, TypeDocker)
	}
}
