// Package recommend orchestrates recommendation computation: it coalesces
// concurrent identical requests, caches ranked results with a TTL, and
// exposes invalidation and prefetch for the data-sync collaborator.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/adapters/cache"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/adapters/perfstore"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/analytics"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/model"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/scoring"
	"github.com/BenGiese22/should-i-race-this-sub003/pkg/logger"
	"github.com/BenGiese22/should-i-race-this-sub003/pkg/metrics"
)

// CacheStatus tells the caller how their request was satisfied.
type CacheStatus string

// Cache statuses.
const (
	StatusHit       CacheStatus = "hit"
	StatusMiss      CacheStatus = "miss"
	StatusCoalesced CacheStatus = "coalesced"
)

// Default coordinator configuration constants.
const (
	defaultWorkerCount = 4
)

// Filters narrow a recommendation request. Filters are applied after scoring
// and are part of the cache key, so distinct filter combinations cache
// independently.
type Filters struct {
	MaxResults int            `json:"max_results,omitempty"`
	Category   model.Category `json:"category,omitempty"`
	StartDate  time.Time      `json:"start_date,omitempty"`
	EndDate    time.Time      `json:"end_date,omitempty"`
}

// Metadata describes how a result was produced.
type Metadata struct {
	CacheStatus      CacheStatus `json:"cache_status"`
	CacheHitRate     float64     `json:"cache_hit_rate"`
	ProcessingTimeMs int64       `json:"processing_time_ms"`
	Skipped          int         `json:"skipped"`
	Generation       string      `json:"generation"`
}

// Result is a ranked recommendation list plus metadata. DriverID echoes the
// requested driver so consumers can correlate responses.
type Result struct {
	DriverID        string                    `json:"driver_id"`
	Recommendations []model.ScoredOpportunity `json:"recommendations"`
	Metadata        Metadata                  `json:"metadata"`
}

// Option applies a configuration option to the Coordinator.
type Option func(*Coordinator)

// WithWorkerCount bounds the scoring fan-out parallelism.
func WithWorkerCount(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSeason overrides how the current season is derived, used by tests.
func WithSeason(f func() (year, quarter int)) Option {
	return func(c *Coordinator) {
		if f != nil {
			c.season = f
		}
	}
}

// Coordinator implements the batch/cache layer over the aggregator and the
// scoring engine. The cache store is the only shared mutable state, and it is
// never exposed for external mutation.
type Coordinator struct {
	store   perfstore.Store
	agg     *analytics.Aggregator
	engine  *scoring.Engine
	cache   *cache.Store
	flights *flightRegistry
	workers int
	season  func() (int, int)
	logger  logger.Logger
}

// NewCoordinator wires the coordinator over its collaborators. The cache
// store is injected so its lifecycle is owned by the caller.
func NewCoordinator(store perfstore.Store, agg *analytics.Aggregator, engine *scoring.Engine, cacheStore *cache.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   store,
		agg:     agg,
		engine:  engine,
		cache:   cacheStore,
		flights: newFlightRegistry(),
		workers: defaultWorkerCount,
		season:  currentSeason,
		logger:  logger.Get().Named("recommend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetRecommendations returns the ranked list for a driver, serving from
// cache when fresh, attaching to an in-flight computation when one exists,
// and computing otherwise.
func (c *Coordinator) GetRecommendations(ctx context.Context, driverID string, filters Filters) (Result, error) {
	if driverID == "" {
		return Result{}, ErrMissingDriver
	}
	start := time.Now()
	key := cache.GenerateKey(driverID, filters)

	if entry, ok := c.cache.Get(key); ok {
		return c.result(driverID, entry.Recommendations, StatusHit, 0, entry.Generation, start), nil
	}

	f, leader, healed := c.flights.join(key)
	if healed {
		c.logger.Warn(ctx, "reset stuck computation",
			logger.String("key", key),
			logger.Error(ErrCacheCorruption),
		)
	}
	if leader {
		// The computation is detached from the caller: a waiter timing out
		// must not cancel work other callers depend on.
		go c.runComputation(context.WithoutCancel(ctx), key, driverID, filters, f)
	} else {
		metrics.RecordCacheCoalesced()
	}

	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("%w: %w", ErrComputationTimeout, ctx.Err())
	case <-f.done:
	}
	if f.res.err != nil {
		return Result{}, f.res.err
	}

	status := StatusCoalesced
	if leader {
		status = StatusMiss
	}
	return c.result(driverID, f.res.recs, status, f.res.skipped, f.res.generation, start), nil
}

// Prefetch warms the cache for a driver without a caller waiting on the
// result. Used by the sync collaborator after new data lands.
func (c *Coordinator) Prefetch(ctx context.Context, driverID string) error {
	metrics.RecordPrefetch()
	_, err := c.GetRecommendations(ctx, driverID, Filters{})
	return err
}

// InvalidateDriver drops every cached entry for a driver.
func (c *Coordinator) InvalidateDriver(driverID string) int {
	metrics.RecordInvalidation()
	return c.cache.DeleteFunc(func(_ string, e cache.Entry) bool {
		return e.DriverID == driverID
	})
}

// InvalidateOpportunity drops every cached entry containing the opportunity.
func (c *Coordinator) InvalidateOpportunity(opportunityKey string) int {
	metrics.RecordInvalidation()
	return c.cache.DeleteFunc(func(_ string, e cache.Entry) bool {
		_, ok := e.OpportunityKeys[opportunityKey]
		return ok
	})
}

// InvalidateAll drops the whole cache; used on schedule-wide updates.
func (c *Coordinator) InvalidateAll() {
	metrics.RecordInvalidation()
	c.cache.Clear()
}

// CacheMetrics returns a snapshot of cache counters.
func (c *Coordinator) CacheMetrics() cache.Stats {
	return c.cache.Stats()
}

// InFlight returns the number of computations currently running.
func (c *Coordinator) InFlight() int {
	return c.flights.size()
}

func (c *Coordinator) result(driverID string, recs []model.ScoredOpportunity, status CacheStatus, skipped int, generation string, start time.Time) Result {
	return Result{
		DriverID:        driverID,
		Recommendations: recs,
		Metadata: Metadata{
			CacheStatus:      status,
			CacheHitRate:     c.cache.Stats().HitRate,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			Skipped:          skipped,
			Generation:       generation,
		},
	}
}

// runComputation executes the full pipeline for one cache key and resolves
// every attached waiter with the same result. On failure the cache key stays
// empty so a later retry can succeed.
func (c *Coordinator) runComputation(ctx context.Context, key, driverID string, filters Filters, f *flight) {
	start := time.Now()
	res := c.compute(ctx, driverID, filters)
	metrics.RecordComputationLatency(float64(time.Since(start).Milliseconds()))

	if res.err != nil {
		metrics.RecordComputationError()
		c.logger.Error(ctx, "recommendation computation failed",
			logger.String("driverID", driverID),
			logger.Error(res.err),
		)
		c.flights.complete(key, f, res)
		return
	}

	oppKeys := make(map[string]struct{}, len(res.recs))
	for _, r := range res.recs {
		oppKeys[r.Opportunity.Key()] = struct{}{}
	}
	c.cache.Set(key, cache.Entry{
		DriverID:        driverID,
		Recommendations: res.recs,
		OpportunityKeys: oppKeys,
		Generation:      res.generation,
	})
	c.flights.complete(key, f, res)
}

func (c *Coordinator) compute(ctx context.Context, driverID string, filters Filters) computationResult {
	profile, err := c.agg.BuildProfile(ctx, driverID)
	if err != nil {
		return computationResult{err: fmt.Errorf("%w: build profile: %w", ErrDataUnavailable, err)}
	}

	year, quarter := c.season()
	opps, err := c.store.ListScheduleEntries(ctx, year, quarter)
	if err != nil {
		return computationResult{err: fmt.Errorf("%w: list schedule: %w", ErrDataUnavailable, err)}
	}

	globals, err := c.agg.BuildGlobalStats(ctx, opps)
	if err != nil {
		return computationResult{err: fmt.Errorf("%w: build global stats: %w", ErrDataUnavailable, err)}
	}

	scored, skipped := c.scoreAll(ctx, profile, globals, opps)
	sortRecommendations(scored)
	scored = applyFilters(scored, filters)

	return computationResult{
		recs:       scored,
		skipped:    skipped,
		generation: uuid.NewString(),
	}
}

// scoreAll fans the engine across the opportunity set with bounded
// parallelism. Scoring is pure per opportunity, so workers share nothing;
// results land in their input slot to keep the output deterministic. Invalid
// opportunities are skipped, not fatal.
func (c *Coordinator) scoreAll(ctx context.Context, profile *model.DriverProfile, globals map[string]model.GlobalStats, opps []model.Opportunity) ([]model.ScoredOpportunity, int) {
	type slot struct {
		value model.ScoredOpportunity
		ok    bool
	}
	slots := make([]slot, len(opps))

	var wg sync.WaitGroup
	sem := make(chan struct{}, c.workers)
	for i, opp := range opps {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, opp model.Opportunity) {
			defer wg.Done()
			defer func() { <-sem }()
			g, ok := globals[opp.Key()]
			if !ok {
				g = model.NeutralGlobalStats(opp.Key())
			}
			so, err := c.engine.Score(profile, g, opp)
			if err != nil {
				if errors.Is(err, scoring.ErrInvalidOpportunity) {
					metrics.RecordOpportunitySkipped()
					c.logger.Warn(ctx, "skipping invalid opportunity",
						logger.String("driverID", profile.DriverID),
						logger.Error(err),
					)
					return
				}
				metrics.RecordOpportunitySkipped()
				c.logger.Error(ctx, "scoring failed for opportunity",
					logger.String("opportunityKey", opp.Key()),
					logger.Error(err),
				)
				return
			}
			metrics.RecordOpportunityScored()
			slots[i] = slot{value: so, ok: true}
		}(i, opp)
	}
	wg.Wait()

	out := make([]model.ScoredOpportunity, 0, len(opps))
	skipped := 0
	for _, s := range slots {
		if s.ok {
			out = append(out, s.value)
		} else {
			skipped++
		}
	}
	return out, skipped
}

// sortRecommendations imposes the total order: overall desc, familiarity
// desc, series id asc.
func sortRecommendations(recs []model.ScoredOpportunity) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Score.Overall != b.Score.Overall {
			return a.Score.Overall > b.Score.Overall
		}
		if a.Score.Factors.Familiarity != b.Score.Factors.Familiarity {
			return a.Score.Factors.Familiarity > b.Score.Factors.Familiarity
		}
		return a.Opportunity.SeriesID < b.Opportunity.SeriesID
	})
}

// applyFilters narrows the ranked list deterministically after scoring.
func applyFilters(recs []model.ScoredOpportunity, f Filters) []model.ScoredOpportunity {
	out := recs
	if f.Category != "" || !f.StartDate.IsZero() || !f.EndDate.IsZero() {
		out = make([]model.ScoredOpportunity, 0, len(recs))
		for _, r := range recs {
			if f.Category != "" && r.Opportunity.Category != f.Category {
				continue
			}
			if !matchesDateRange(r.Opportunity, f.StartDate, f.EndDate) {
				continue
			}
			out = append(out, r)
		}
	}
	if f.MaxResults > 0 && len(out) > f.MaxResults {
		out = out[:f.MaxResults]
	}
	return out
}

// matchesDateRange keeps an opportunity when any scheduled slot falls inside
// the requested window. Without a window everything passes.
func matchesDateRange(opp model.Opportunity, start, end time.Time) bool {
	if start.IsZero() && end.IsZero() {
		return true
	}
	for _, slot := range opp.TimeSlots {
		if !start.IsZero() && slot.StartTime.Before(start) {
			continue
		}
		if !end.IsZero() && slot.StartTime.After(end) {
			continue
		}
		return true
	}
	return false
}

// currentSeason derives (year, quarter) from the wall clock.
func currentSeason() (int, int) {
	now := time.Now().UTC()
	return now.Year(), int(now.Month()-1)/3 + 1
}
