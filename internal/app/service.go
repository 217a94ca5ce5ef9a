// Package app provides the core business service that implements the
// dependencies required by the HTTP API.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/adapters/cache"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/adapters/mq/queue"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/adapters/mq/worker"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/adapters/perfstore"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/analytics"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/dedupe"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/recommend"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/scoring"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/perfmon"
	"github.com/BenGiese22/should-i-race-this-sub003/pkg/logger"
	"github.com/BenGiese22/should-i-race-this-sub003/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultCacheTTL          = 15 * time.Minute
	defaultCleanupInterval   = 5 * time.Minute
	defaultMaxResults        = 100
	defaultSyncQueueCapacity = 10000
	defaultSyncWorkers       = 2
	defaultSyncDedupeSize    = 50000
	syncShutdownTimeout      = 10 * time.Second
)

// Service wires the aggregator, scoring engine, cache coordinator and
// performance monitor behind one dependency surface.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       perfstore.Store
	aggregator  *analytics.Aggregator
	engine      *scoring.Engine
	cacheStore  *cache.Store
	coordinator *recommend.Coordinator
	monitor     *perfmon.Monitor

	// Sync-notice intake
	syncQueue *queue.InMemoryQueue
	syncPool  *worker.Pool
	deduper   dedupe.Deduper

	// Configuration
	cacheTTL             time.Duration
	cleanupInterval      time.Duration
	workerCount          int
	minSampleSize        int
	trendWindow          int
	familiarityThreshold int
	maxResultsLimit      int
	weights              scoring.Weights
	season               func() (int, int)
	syncQueueCapacity    int
	syncWorkerCount      int
	syncDedupeSize       int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the performance store the service reads from.
func WithStore(store perfstore.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCacheTTL sets the recommendation cache time-to-live.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithCleanupInterval sets the cache sweep interval.
func WithCleanupInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cleanupInterval = d
		}
	}
}

// WithWorkerCount bounds per-computation scoring parallelism.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithMinSampleSize sets the qualifying-race floor for trusted groupings.
func WithMinSampleSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minSampleSize = n
		}
	}
}

// WithTrendWindow sets the recent-race window feeding the trend signal.
func WithTrendWindow(k int) Option {
	return func(s *Service) {
		if k > 1 {
			s.trendWindow = k
		}
	}
}

// WithFamiliarityThreshold sets the start count where familiarity saturates.
func WithFamiliarityThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.familiarityThreshold = n
		}
	}
}

// WithMaxResultsLimit caps the max_results request filter.
func WithMaxResultsLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxResultsLimit = n
		}
	}
}

// WithWeights sets the scoring factor weights.
func WithWeights(w scoring.Weights) Option {
	return func(s *Service) {
		if w.Validate() == nil {
			s.weights = w
		}
	}
}

// WithSyncQueueCapacity bounds the pending sync-notice buffer.
func WithSyncQueueCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.syncQueueCapacity = n
		}
	}
}

// WithSyncWorkerCount sets how many workers drain the sync-notice queue.
func WithSyncWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.syncWorkerCount = n
		}
	}
}

// WithSyncDedupeSize bounds how many notice IDs are remembered for
// redelivery suppression.
func WithSyncDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.syncDedupeSize = n
		}
	}
}

// WithSeason pins the schedule season instead of deriving it from the clock.
func WithSeason(f func() (int, int)) Option {
	return func(s *Service) {
		if f != nil {
			s.season = f
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cacheTTL:             defaultCacheTTL,
		cleanupInterval:      defaultCleanupInterval,
		workerCount:          4,
		minSampleSize:        3,
		trendWindow:          10,
		familiarityThreshold: 10,
		maxResultsLimit:      defaultMaxResults,
		weights:              scoring.DefaultWeights(),
		syncQueueCapacity:    defaultSyncQueueCapacity,
		syncWorkerCount:      defaultSyncWorkers,
		syncDedupeSize:       defaultSyncDedupeSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the component graph. A Service without a store cannot
// start.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		return ErrNoStore
	}

	s.logger.Info(ctx, "starting recommendation service...")

	s.monitor = perfmon.New()
	s.aggregator = analytics.New(s.store,
		analytics.WithMinSampleSize(s.minSampleSize),
		analytics.WithTrendWindow(s.trendWindow),
	)
	s.engine = scoring.NewEngine(
		scoring.WithWeights(s.weights),
		scoring.WithMinSampleSize(s.minSampleSize),
		scoring.WithFamiliarityThreshold(s.familiarityThreshold),
	)
	s.cacheStore = cache.NewStore(
		cache.WithTTL(s.cacheTTL),
		cache.WithCleanupInterval(s.cleanupInterval),
	)
	coordOpts := []recommend.Option{
		recommend.WithWorkerCount(s.workerCount),
		recommend.WithLogger(s.logger.Named("recommend")),
	}
	if s.season != nil {
		coordOpts = append(coordOpts, recommend.WithSeason(s.season))
	}
	s.coordinator = recommend.NewCoordinator(s.store, s.aggregator, s.engine, s.cacheStore, coordOpts...)

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.syncDedupeSize))
	s.syncQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.syncQueueCapacity))
	s.syncPool = worker.NewPool(s.syncQueue, s,
		worker.WithWorkerCount(s.syncWorkerCount),
		worker.WithLogger(s.logger.Named("sync-worker")),
	)
	s.syncPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "recommendation service started",
		logger.Int("workers", s.workerCount),
		logger.String("cacheTTL", s.cacheTTL.String()),
		logger.Int("minSampleSize", s.minSampleSize),
	)
	return nil
}

// Stop shuts the service down and releases the cache sweeper.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.syncPool != nil {
		ctx, cancel := context.WithTimeout(context.Background(), syncShutdownTimeout)
		if err := s.syncPool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "sync workers did not drain", logger.Error(err))
		}
		cancel()
	}
	if s.cacheStore != nil {
		s.cacheStore.Close()
	}
	s.started = false
	s.logger.Info(context.Background(), "recommendation service stopped")
}

// Recommendations returns the ranked, cached list for a driver.
func (s *Service) Recommendations(ctx context.Context, driverID string, filters recommend.Filters) (recommend.Result, error) {
	if filters.MaxResults > s.maxResultsLimit {
		filters.MaxResults = s.maxResultsLimit
	}
	return perfmon.TimeValue(s.monitor, "recommendations", perfmon.CategoryAPI, func() (recommend.Result, error) {
		return s.coordinator.GetRecommendations(ctx, driverID, filters)
	})
}

// Prefetch warms the cache for a driver.
func (s *Service) Prefetch(ctx context.Context, driverID string) error {
	return s.monitor.Time("prefetch", perfmon.CategoryCache, func() error {
		return s.coordinator.Prefetch(ctx, driverID)
	})
}

// InvalidateDriver drops cached results for one driver.
func (s *Service) InvalidateDriver(driverID string) int {
	return s.coordinator.InvalidateDriver(driverID)
}

// InvalidateOpportunity drops cached results containing one opportunity.
func (s *Service) InvalidateOpportunity(opportunityKey string) int {
	return s.coordinator.InvalidateOpportunity(opportunityKey)
}

// InvalidateAll drops every cached result.
func (s *Service) InvalidateAll() {
	s.coordinator.InvalidateAll()
}

// ClearCaches is the external alias for a full invalidation.
func (s *Service) ClearCaches() {
	s.coordinator.InvalidateAll()
}

// NotifyDataSync is invoked by the sync collaborator after new historical
// data lands: invalidate first, then warm.
func (s *Service) NotifyDataSync(ctx context.Context, driverID string) error {
	s.coordinator.InvalidateDriver(driverID)
	return s.Prefetch(ctx, driverID)
}

// SubmitSyncNotice queues an async warm-up for a driver whose upstream data
// changed. Returns whether the notice was accepted and whether it was a
// redelivery. Redeliveries are acknowledged without re-queueing.
func (s *Service) SubmitSyncNotice(ctx context.Context, noticeID, driverID string) (accepted, duplicate bool) {
	if s.deduper.SeenAndRecord(ctx, noticeID) {
		metrics.RecordSyncNoticeDuplicate()
		return true, true
	}
	n := queue.Notice{
		NoticeID:   noticeID,
		DriverID:   driverID,
		ReceivedAt: time.Now(),
	}
	if !s.syncQueue.Enqueue(ctx, n) {
		// Allow the upstream to retry the same notice ID later.
		s.deduper.Unrecord(ctx, noticeID)
		return false, false
	}
	return true, false
}

// SyncQueueLen reports the number of notices waiting for warm-up.
func (s *Service) SyncQueueLen(ctx context.Context) int {
	return s.syncQueue.Len(ctx)
}

// CacheMetrics returns a snapshot of cache counters.
func (s *Service) CacheMetrics() cache.Stats {
	return s.coordinator.CacheMetrics()
}

// PerformanceSummary aggregates monitor samples over the trailing window.
func (s *Service) PerformanceSummary(window time.Duration) map[perfmon.Category]perfmon.CategorySummary {
	return s.monitor.Summary(window)
}

// Alerts returns all raised threshold alerts.
func (s *Service) Alerts() []perfmon.Alert {
	return s.monitor.Alerts()
}

// SetThreshold configures a perfmon threshold.
func (s *Service) SetThreshold(metric string, warning, critical float64) {
	s.monitor.SetThreshold(metric, warning, critical)
}

// MaxResultsLimit exposes the configured filter cap for handlers.
func (s *Service) MaxResultsLimit() int {
	return s.maxResultsLimit
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"cacheTTL":    s.cacheTTL.String(),
	}
	if s.started {
		cs := s.coordinator.CacheMetrics()
		stats["cacheEntries"] = cs.Size
		stats["cacheHitRate"] = cs.HitRate
		stats["cacheRequests"] = cs.TotalRequests
		stats["inFlight"] = s.coordinator.InFlight()
		stats["syncQueueLength"] = s.syncQueue.Len(context.Background())
		stats["syncDedupeSize"] = s.deduper.Size()
	}
	return stats
}
