package datarepo

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/bassista/go_mirror/internal/logger"
	"github.com/bassista/go_mirror/internal/payload"
	"github.com/bassista/go_mirror/internal/telemetry"
)

const (
	defaultStopTimeout = 5 * time.Second

	// minCycleDelay is the floor for the sleep between refresh cycles, so a
	// small interval minus jitter can never turn a loop into a busy spin.
	minCycleDelay = time.Second
)

// RefreshFunc produces a fresh payload for a source. Returning (nil, nil)
// means "nothing new"; the previous snapshot is kept either way.
type RefreshFunc func(ctx context.Context) (*payload.Payload, error)

// registration is one named source with its schedule.
// fetchMu serializes the background loop and RefreshNow for the same key.
type registration struct {
	key      string
	fn       RefreshFunc
	interval time.Duration
	jitter   time.Duration

	fetchMu sync.Mutex
}

// Repository holds the latest payload per registered source and runs one
// background refresh goroutine per source while started.
//
// Reads never block on fetches: Snapshot returns whatever payload is stored
// at call time, which is nil until the first successful refresh.
type Repository struct {
	mu            sync.RWMutex
	registrations map[string]*registration
	payloads      map[string]*payload.Payload
	statuses      map[string]*SourceStatus

	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      *sync.WaitGroup

	collector   telemetry.Collector
	stopTimeout time.Duration
	minDelay    time.Duration
}

// New creates an empty repository. New without options never fails.
func New(opts ...Option) (*Repository, error) {
	r := &Repository{
		registrations: map[string]*registration{},
		payloads:      map[string]*payload.Payload{},
		statuses:      map[string]*SourceStatus{},
		collector:     telemetry.Noop(),
		stopTimeout:   defaultStopTimeout,
		minDelay:      minCycleDelay,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a source under a unique key. No refresh happens here; the
// first fetch runs when the repository is started (or via RefreshNow).
// If the repository is already running, the source's loop starts immediately.
func (r *Repository) Register(key string, fn RefreshFunc, interval, jitter time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if fn == nil {
		return fmt.Errorf("%w: %s", ErrNilRefreshFunc, key)
	}
	if interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %v", ErrInvalidSchedule, interval)
	}
	if jitter < 0 {
		return fmt.Errorf("%w: jitter must not be negative, got %v", ErrInvalidSchedule, jitter)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.registrations[key]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, key)
	}

	reg := &registration{key: key, fn: fn, interval: interval, jitter: jitter}
	r.registrations[key] = reg
	r.statuses[key] = &SourceStatus{Key: key, Interval: interval, Jitter: jitter}

	logger.WithComponent("repo").Debugf("registered source %s (interval %v, jitter %v)", key, interval, jitter)

	if r.running {
		r.spawnLoop(reg)
	}
	return nil
}

// Keys returns the registered source keys in sorted order.
func (r *Repository) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.registrations))
	for k := range r.registrations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RefreshNow synchronously refreshes one source and returns the fresh payload.
// An unknown key is an error. A failing or empty fetch is not: it is logged,
// the previous snapshot stays untouched, and (nil, nil) is returned.
func (r *Repository) RefreshNow(ctx context.Context, key string) (*payload.Payload, error) {
	r.mu.RLock()
	reg, ok := r.registrations[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, key)
	}
	return r.refresh(ctx, reg), nil
}

// Snapshot returns the latest payload for a key without triggering any fetch.
// It returns nil for unknown keys and for sources that have not completed a
// successful refresh yet.
func (r *Repository) Snapshot(key string) *payload.Payload {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.payloads[key]
}

// SnapshotAsync returns a 1-buffered channel already holding the current
// snapshot (possibly nil). It never blocks and the channel is closed after
// the single value, so it composes with select loops.
func (r *Repository) SnapshotAsync(key string) <-chan *payload.Payload {
	ch := make(chan *payload.Payload, 1)
	ch <- r.Snapshot(key)
	close(ch)
	return ch
}

// Snapshots returns a copy of the current key → payload map, skipping sources
// without a snapshot.
func (r *Repository) Snapshots() map[string]*payload.Payload {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*payload.Payload, len(r.payloads))
	for k, v := range r.payloads {
		out[k] = v
	}
	return out
}

// Status returns a copy of one source's run status.
func (r *Repository) Status(key string) (SourceStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.statuses[key]
	if !ok {
		return SourceStatus{}, false
	}
	return *st, true
}

// Statuses returns copies of all source statuses, sorted by key.
func (r *Repository) Statuses() []SourceStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SourceStatus, 0, len(r.statuses))
	for _, st := range r.statuses {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Running reports whether the background loops are active.
func (r *Repository) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// Start launches one refresh goroutine per registered source. Each loop
// refreshes immediately, then sleeps interval ± jitter between cycles.
// Calling Start on a running repository is a no-op.
func (r *Repository) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		logger.WithComponent("repo").Debug("repository already running")
		return
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.wg = &sync.WaitGroup{}
	r.running = true
	for _, reg := range r.registrations {
		r.spawnLoop(reg)
	}
	count := len(r.registrations)
	r.mu.Unlock()

	logger.WithComponent("repo").Infof("repository started with %d sources", count)
}

// Stop cancels all refresh loops and waits for them to drain, bounded by the
// stop timeout. Calling Stop on a stopped repository is a no-op.
func (r *Repository) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		logger.WithComponent("repo").Debug("repository already stopped")
		return
	}
	r.running = false
	cancel := r.cancel
	wg := r.wg
	r.cancel = nil
	r.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.WithComponent("repo").Info("repository stopped")
	case <-time.After(r.stopTimeout):
		logger.WithComponent("repo").Warnf("repository stop timed out after %v, abandoning in-flight refreshes", r.stopTimeout)
	}
}

// spawnLoop starts the refresh goroutine for reg. Caller must hold r.mu with
// running set.
func (r *Repository) spawnLoop(reg *registration) {
	r.wg.Add(1)
	ctx, wg := r.ctx, r.wg
	go func() {
		defer wg.Done()
		r.runLoop(ctx, reg)
	}()
}

func (r *Repository) runLoop(ctx context.Context, reg *registration) {
	logger.WithComponent("repo").Debugf("refresh loop for %s starting (interval %v, jitter %v)", reg.key, reg.interval, reg.jitter)

	// Warm start: populate the snapshot before the first sleep.
	r.refresh(ctx, reg)

	timer := time.NewTimer(r.nextDelay(reg.interval, reg.jitter))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.WithComponent("repo").Debugf("refresh loop for %s stopped", reg.key)
			return
		case <-timer.C:
			r.refresh(ctx, reg)
			timer.Reset(r.nextDelay(reg.interval, reg.jitter))
		}
	}
}

// refresh runs one fetch for reg and records the outcome. Failures never
// propagate: the previous snapshot survives and the loop stays on schedule.
func (r *Repository) refresh(ctx context.Context, reg *registration) *payload.Payload {
	reg.fetchMu.Lock()
	defer reg.fetchMu.Unlock()

	start := time.Now()
	p, err := safeFetch(ctx, reg.fn)
	elapsed := time.Since(start)

	r.mu.Lock()
	st := r.statuses[reg.key]
	st.LastAttempt = start.UTC()
	st.RunCount++
	st.LastDuration = elapsed

	if err != nil {
		st.ErrorCount++
		st.LastError = err.Error()
		r.mu.Unlock()

		r.collector.ObserveRefresh(reg.key, telemetry.OutcomeError, elapsed)
		logger.WithComponent("repo").Errorf("refresh %s failed after %v: %v", reg.key, elapsed, err)
		return nil
	}

	if p == nil {
		st.LastError = ""
		r.mu.Unlock()

		r.collector.ObserveRefresh(reg.key, telemetry.OutcomeEmpty, elapsed)
		logger.WithComponent("repo").Debugf("refresh %s produced no payload, keeping previous snapshot", reg.key)
		return nil
	}

	r.payloads[reg.key] = p
	st.LastSuccess = start.UTC()
	st.LastError = ""
	r.mu.Unlock()

	r.collector.ObserveRefresh(reg.key, telemetry.OutcomeSuccess, elapsed)
	logger.WithComponent("repo").Debugf("refresh %s completed in %v", reg.key, elapsed)
	return p
}

// nextDelay returns interval shifted by a uniform random offset in
// [-jitter, +jitter], clamped to the cycle floor.
func (r *Repository) nextDelay(interval, jitter time.Duration) time.Duration {
	d := interval
	if jitter > 0 {
		d += time.Duration(rand.Int63n(int64(2*jitter)+1)) - jitter
	}
	if d < r.minDelay {
		d = r.minDelay
	}
	return d
}

// safeFetch invokes fn, converting a panic into an error so one misbehaving
// source cannot take down the whole process.
func safeFetch(ctx context.Context, fn RefreshFunc) (p *payload.Payload, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p = nil
			err = fmt.Errorf("refresh panicked: %v", rec)
		}
	}()
	return fn(ctx)
}
