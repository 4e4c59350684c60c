package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Refresh outcomes reported by the data repository.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeEmpty   = "empty"
)

// Cache events reported by the durable cache.
const (
	CacheHit        = "hit"
	CacheMiss       = "miss"
	CacheExpired    = "expired"
	CacheCorrupt    = "corrupt"
	CacheWriteError = "write_error"
)

// Collector captures telemetry events emitted by the refresh loops and the
// durable cache. Implementations must be cheap to call: hooks run inline with
// every refresh cycle and every cache lookup.
type Collector interface {
	ObserveRefresh(source, outcome string, duration time.Duration)
	IncCacheEvent(fn, event string)
}

type noopCollector struct{}

// Noop returns a collector that discards all events.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) ObserveRefresh(string, string, time.Duration) {}
func (noopCollector) IncCacheEvent(string, string)                 {}

// PrometheusCollector exposes refresh and cache counters via Prometheus.
type PrometheusCollector struct {
	refreshTotal    *prometheus.CounterVec
	refreshDuration *prometheus.GaugeVec
	lastRefresh     *prometheus.GaugeVec
	cacheEvents     *prometheus.CounterVec
}

// NewPrometheusCollector registers the required metrics with the provided
// registerer. Registering twice against the same registerer reuses the
// existing metric vectors instead of failing.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	refreshTotal, err := registerCounterVec(reg, prometheus.CounterOpts{
		Name: "mirror_source_refresh_total",
		Help: "Number of refresh cycles per source and outcome.",
	}, []string{"source", "outcome"})
	if err != nil {
		return nil, err
	}

	refreshDuration, err := registerGaugeVec(reg, prometheus.GaugeOpts{
		Name: "mirror_source_refresh_duration_seconds",
		Help: "Duration of the most recent refresh per source.",
	}, []string{"source"})
	if err != nil {
		return nil, err
	}

	lastRefresh, err := registerGaugeVec(reg, prometheus.GaugeOpts{
		Name: "mirror_source_last_success_timestamp_seconds",
		Help: "Unix timestamp of the last successful refresh per source.",
	}, []string{"source"})
	if err != nil {
		return nil, err
	}

	cacheEvents, err := registerCounterVec(reg, prometheus.CounterOpts{
		Name: "mirror_cache_events_total",
		Help: "Number of durable cache events per wrapped function and event kind.",
	}, []string{"fn", "event"})
	if err != nil {
		return nil, err
	}

	return &PrometheusCollector{
		refreshTotal:    refreshTotal,
		refreshDuration: refreshDuration,
		lastRefresh:     lastRefresh,
		cacheEvents:     cacheEvents,
	}, nil
}

// ObserveRefresh records the outcome and duration of one refresh cycle.
func (p *PrometheusCollector) ObserveRefresh(source, outcome string, duration time.Duration) {
	if p == nil || p.refreshTotal == nil {
		return
	}
	p.refreshTotal.WithLabelValues(source, outcome).Inc()
	p.refreshDuration.WithLabelValues(source).Set(duration.Seconds())
	if outcome == OutcomeSuccess {
		p.lastRefresh.WithLabelValues(source).SetToCurrentTime()
	}
}

// IncCacheEvent increments the counter for a cache event.
func (p *PrometheusCollector) IncCacheEvent(fn, event string) {
	if p == nil || p.cacheEvents == nil {
		return
	}
	p.cacheEvents.WithLabelValues(fn, event).Inc()
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts, labels []string) (*prometheus.CounterVec, error) {
	vec := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(vec); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		return existing, nil
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, opts prometheus.GaugeOpts, labels []string) (*prometheus.GaugeVec, error) {
	vec := prometheus.NewGaugeVec(opts, labels)
	if err := reg.Register(vec); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.GaugeVec)
		if !ok {
			return nil, err
		}
		return existing, nil
	}
	return vec, nil
}
