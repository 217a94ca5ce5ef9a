// Package metrics provides Prometheus metrics for the race-recommendation
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Cache behavior - the heart of the coordinator
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheCoalesced prometheus.Counter
	cacheSize      prometheus.Gauge
	invalidations  prometheus.Counter
	prefetches     prometheus.Counter

	// Computation pipeline
	computationLatency   prometheus.Histogram
	profileBuildLatency  prometheus.Histogram
	opportunitiesScored  prometheus.Counter
	opportunitiesSkipped prometheus.Counter
	computationErrors    prometheus.Counter

	// Sync-notice intake
	syncQueueSize        prometheus.Gauge
	syncNoticesAccepted  prometheus.Counter
	syncNoticesDuplicate prometheus.Counter
	syncNoticesDropped   prometheus.Counter
	syncWarmups          prometheus.Counter
	syncWarmupErrors     prometheus.Counter

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Process health
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "sirt",
		subsystem:        "recommend",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.cacheHits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "cache_hits_total", Help: "Recommendation cache hits.",
	})
	m.cacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "cache_misses_total", Help: "Recommendation cache misses.",
	})
	m.cacheCoalesced = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "cache_coalesced_total", Help: "Requests served by attaching to an in-flight computation.",
	})
	m.cacheSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "cache_entries", Help: "Live cache entries.",
	})
	m.invalidations = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "cache_invalidations_total", Help: "Explicit cache invalidations.",
	})
	m.prefetches = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "prefetches_total", Help: "Prefetch operations triggered.",
	})

	m.computationLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "computation_latency_ms", Help: "Full recommendation computation latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})
	m.profileBuildLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "profile_build_latency_ms", Help: "Driver profile aggregation latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})
	m.opportunitiesScored = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "opportunities_scored_total", Help: "Opportunities scored across all computations.",
	})
	m.opportunitiesSkipped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "opportunities_skipped_total", Help: "Opportunities dropped from a batch as invalid.",
	})
	m.computationErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "computation_errors_total", Help: "Whole-computation failures.",
	})

	m.syncQueueSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sync_queue_entries", Help: "Sync notices waiting for warm-up.",
	})
	m.syncNoticesAccepted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sync_notices_accepted_total", Help: "Sync notices accepted into the queue.",
	})
	m.syncNoticesDuplicate = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sync_notices_duplicate_total", Help: "Sync notices dropped as redeliveries.",
	})
	m.syncNoticesDropped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sync_notices_dropped_total", Help: "Sync notices rejected because the queue was full or closed.",
	})
	m.syncWarmups = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sync_warmups_total", Help: "Warm-up computations completed by sync workers.",
	})
	m.syncWarmupErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sync_warmup_errors_total", Help: "Warm-up computations that failed.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total", Help: "HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_request_duration_ms", Help: "HTTP request duration in milliseconds.",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	m.systemMemoryUsage = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_memory_bytes", Help: "Current heap allocation.",
	})
	m.systemGoroutineCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_goroutines", Help: "Current goroutine count.",
	})
}

// Package-level helpers record against the global manager.

// RecordCacheHit counts one cache hit.
func RecordCacheHit() { globalManager.cacheHits.Inc() }

// RecordCacheMiss counts one cache miss.
func RecordCacheMiss() { globalManager.cacheMisses.Inc() }

// RecordCacheCoalesced counts one coalesced request.
func RecordCacheCoalesced() { globalManager.cacheCoalesced.Inc() }

// UpdateCacheSize sets the live entry gauge.
func UpdateCacheSize(n int) { globalManager.cacheSize.Set(float64(n)) }

// RecordInvalidation counts one explicit invalidation.
func RecordInvalidation() { globalManager.invalidations.Inc() }

// RecordPrefetch counts one prefetch trigger.
func RecordPrefetch() { globalManager.prefetches.Inc() }

// RecordComputationLatency observes one full computation in milliseconds.
func RecordComputationLatency(ms float64) { globalManager.computationLatency.Observe(ms) }

// RecordProfileBuildLatency observes one profile aggregation in milliseconds.
func RecordProfileBuildLatency(ms float64) { globalManager.profileBuildLatency.Observe(ms) }

// RecordOpportunityScored counts one scored opportunity.
func RecordOpportunityScored() { globalManager.opportunitiesScored.Inc() }

// RecordOpportunitySkipped counts one opportunity dropped as invalid.
func RecordOpportunitySkipped() { globalManager.opportunitiesSkipped.Inc() }

// RecordComputationError counts one whole-computation failure.
func RecordComputationError() { globalManager.computationErrors.Inc() }

// UpdateSyncQueueSize sets the pending sync-notice gauge.
func UpdateSyncQueueSize(n int) { globalManager.syncQueueSize.Set(float64(n)) }

// RecordSyncNoticeAccepted counts one notice admitted to the queue.
func RecordSyncNoticeAccepted() { globalManager.syncNoticesAccepted.Inc() }

// RecordSyncNoticeDuplicate counts one redelivered notice.
func RecordSyncNoticeDuplicate() { globalManager.syncNoticesDuplicate.Inc() }

// RecordSyncNoticeDropped counts one notice the queue refused.
func RecordSyncNoticeDropped() { globalManager.syncNoticesDropped.Inc() }

// RecordSyncWarmup counts one completed warm-up.
func RecordSyncWarmup() { globalManager.syncWarmups.Inc() }

// RecordSyncWarmupError counts one failed warm-up.
func RecordSyncWarmupError() { globalManager.syncWarmupErrors.Inc() }

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration observes one HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutineCount.Set(float64(n)) }

// GetRegistry returns the custom registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
