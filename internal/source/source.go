package source

import (
	"context"
	"time"

	"github.com/bassista/go_mirror/internal/payload"
)

// Source produces payload snapshots for one repository key.
// Fetch is called by the repository on the source's schedule; implementations
// must honor ctx cancellation on any blocking work.
type Source interface {
	Name() string
	Interval() time.Duration
	Jitter() time.Duration
	Fetch(ctx context.Context) (*payload.Payload, error)
}
