package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopCollector(t *testing.T) {
	collector := Noop()
	require.NotNil(t, collector)

	// Must not panic.
	collector.ObserveRefresh("weather", OutcomeSuccess, time.Second)
	collector.IncCacheEvent("fetch_weather", CacheHit)
}

func TestPrometheusCollector_ObserveRefresh(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	require.NotNil(t, collector)

	collector.ObserveRefresh("weather", OutcomeSuccess, 250*time.Millisecond)
	collector.ObserveRefresh("weather", OutcomeError, 100*time.Millisecond)
	collector.IncCacheEvent("fetch_weather", CacheMiss)

	metrics, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range metrics {
		names[mf.GetName()] = true
	}
	assert.True(t, names["mirror_source_refresh_total"])
	assert.True(t, names["mirror_source_refresh_duration_seconds"])
	assert.True(t, names["mirror_source_last_success_timestamp_seconds"])
	assert.True(t, names["mirror_cache_events_total"])

	for _, mf := range metrics {
		if mf.GetName() != "mirror_source_refresh_total" {
			continue
		}
		total := 0.0
		for _, m := range mf.Metric {
			total += m.Counter.GetValue()
		}
		assert.Equal(t, 2.0, total)
	}
}

func TestPrometheusCollector_RegisterTwiceReusesVectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	second, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	require.Same(t, first.refreshTotal, second.refreshTotal)
	require.Same(t, first.cacheEvents, second.cacheEvents)

	first.IncCacheEvent("fetch_news", CacheHit)
	second.IncCacheEvent("fetch_news", CacheHit)

	metrics, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range metrics {
		if mf.GetName() != "mirror_cache_events_total" {
			continue
		}
		require.Len(t, mf.Metric, 1)
		assert.Equal(t, 2.0, mf.Metric[0].Counter.GetValue())
	}
}

func TestPrometheusCollector_NilReceiverIsSafe(t *testing.T) {
	var collector *PrometheusCollector

	// Nil collectors are tolerated so wiring code can skip the nil check.
	collector.ObserveRefresh("weather", OutcomeSuccess, time.Second)
	collector.IncCacheEvent("fetch_weather", CacheHit)
}
