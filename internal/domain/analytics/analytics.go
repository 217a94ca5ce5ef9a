// Package analytics turns raw historical race rows into per-driver profiles
// and population baselines for scoring.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/adapters/perfstore"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/model"
	"github.com/BenGiese22/should-i-race-this-sub003/pkg/metrics"
)

// Default aggregation configuration constants.
const (
	defaultMinSampleSize = 3
	defaultTrendWindow   = 10
	cadenceWindow        = 28 * 24 * time.Hour // window for races-per-week cadence
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithMinSampleSize sets the minimum qualifying rows before a grouping is
// trusted for scoring.
func WithMinSampleSize(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.minSample = n
		}
	}
}

// WithTrendWindow sets how many recent races feed the trend signal.
func WithTrendWindow(k int) Option {
	return func(a *Aggregator) {
		if k > 1 {
			a.trendWindow = k
		}
	}
}

// WithClock overrides the time source, used by tests for cadence math.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// Aggregator computes driver profiles and global stats from the performance
// store. It holds no mutable state across calls and never mutates its inputs.
type Aggregator struct {
	store       perfstore.Store
	minSample   int
	trendWindow int
	now         func() time.Time
}

// New creates an Aggregator over the given store.
func New(store perfstore.Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:       store,
		minSample:   defaultMinSampleSize,
		trendWindow: defaultTrendWindow,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MinSampleSize exposes the configured sample threshold for downstream
// grouping resolution.
func (a *Aggregator) MinSampleSize() int {
	return a.minSample
}

// BuildProfile computes a driver's performance profile from race-session rows.
// Zero rows is valid and yields an empty profile with neutral stats; only an
// unreachable store is an error.
func (a *Aggregator) BuildProfile(ctx context.Context, driverID string) (*model.DriverProfile, error) {
	start := time.Now()
	rows, err := a.store.ListRaceResults(ctx, driverID, perfstore.RaceOnly())
	if err != nil {
		return nil, fmt.Errorf("list race results for %s: %w", driverID, err)
	}
	metrics.RecordProfileBuildLatency(float64(time.Since(start).Milliseconds()))

	// Deterministic base order regardless of store iteration order.
	sortChronological(rows)

	p := &model.DriverProfile{
		DriverID:       driverID,
		PerSeries:      make(map[string]model.StatLine),
		PerTrack:       make(map[string]model.StatLine),
		PerSeriesTrack: make(map[string]model.StatLine),
		BuiltAt:        a.now(),
	}
	if len(rows) == 0 {
		p.PrimaryCategory = model.CategoryRoad
		return p, nil
	}

	p.Overall = buildStatLine(rows)
	p.PrimaryCategory = primaryCategory(rows)

	for key, group := range groupBy(rows, func(r model.RaceResult) string { return r.SeriesID }) {
		p.PerSeries[key] = buildStatLine(group)
	}
	for key, group := range groupBy(rows, func(r model.RaceResult) string { return r.TrackID }) {
		p.PerTrack[key] = buildStatLine(group)
	}
	for key, group := range groupBy(rows, func(r model.RaceResult) string {
		return model.SeriesTrackKey(r.SeriesID, r.TrackID)
	}) {
		p.PerSeriesTrack[key] = buildStatLine(group)
	}

	recent := rows
	if len(recent) > a.trendWindow {
		recent = recent[len(recent)-a.trendWindow:]
	}
	p.TrendSlope = trendSlope(recent, func(r model.RaceResult) float64 { return r.FinishDelta() })
	p.SafetyTrend = trendSlope(recent, func(r model.RaceResult) float64 { return r.SafetyRating })
	p.RacesPerWeek = racesPerWeek(rows, a.now())

	return p, nil
}

// BuildGlobalStats computes the population baseline for each opportunity.
// Opportunities with no history degrade to the neutral baseline.
func (a *Aggregator) BuildGlobalStats(ctx context.Context, opps []model.Opportunity) (map[string]model.GlobalStats, error) {
	out := make(map[string]model.GlobalStats, len(opps))
	for _, opp := range opps {
		key := opp.Key()
		if _, done := out[key]; done {
			continue
		}
		rows, err := a.store.ListFieldResults(ctx, opp.SeriesID, opp.TrackID)
		if err != nil {
			return nil, fmt.Errorf("list field results for %s: %w", key, err)
		}
		if len(rows) == 0 {
			out[key] = model.NeutralGlobalStats(key)
			continue
		}
		// Fixed accumulation order keeps the float sums identical run to run.
		sortChronological(rows)
		line := buildStatLine(rows)
		dnf := 0
		var finishSum, finishSq float64
		for _, r := range rows {
			if r.DNF {
				dnf++
			}
			f := float64(r.FinishPos)
			finishSum += f
			finishSq += f * f
		}
		n := float64(len(rows))
		finishMean := finishSum / n
		finishVar := math.Max(0, finishSq/n-finishMean*finishMean)
		out[key] = model.GlobalStats{
			OpportunityKey:   key,
			Races:            len(rows),
			AvgIncidents:     line.IncidentRate,
			FinishPosStdDev:  math.Sqrt(finishVar),
			AvgSOF:           line.AvgSOF,
			SOFVariance:      line.SOFVariance,
			AttritionRate:    float64(dnf) / n,
			AvgRaceLengthMin: line.AvgRaceLengthMin,
		}
	}
	return out, nil
}

// sortChronological orders rows by start time, session id as the tiebreak.
func sortChronological(rows []model.RaceResult) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].StartTime.Equal(rows[j].StartTime) {
			return rows[i].StartTime.Before(rows[j].StartTime)
		}
		return rows[i].SessionID < rows[j].SessionID
	})
}

// buildStatLine computes arithmetic means and population variance over rows.
func buildStatLine(rows []model.RaceResult) model.StatLine {
	n := float64(len(rows))
	if n == 0 {
		return model.StatLine{}
	}
	var deltaSum, deltaSq, incSum, sofSum, sofSq, lenSum float64
	for _, r := range rows {
		d := r.FinishDelta()
		deltaSum += d
		deltaSq += d * d
		incSum += float64(r.Incidents)
		sofSum += r.SOF
		sofSq += r.SOF * r.SOF
		lenSum += r.RaceLengthMin
	}
	deltaMean := deltaSum / n
	sofMean := sofSum / n
	return model.StatLine{
		Starts:           len(rows),
		AvgFinishDelta:   deltaMean,
		FinishVariance:   math.Max(0, deltaSq/n-deltaMean*deltaMean),
		IncidentRate:     incSum / n,
		AvgSOF:           sofMean,
		SOFVariance:      math.Max(0, sofSq/n-sofMean*sofMean),
		AvgRaceLengthMin: lenSum / n,
	}
}

func groupBy(rows []model.RaceResult, key func(model.RaceResult) string) map[string][]model.RaceResult {
	groups := make(map[string][]model.RaceResult)
	for _, r := range rows {
		k := key(r)
		groups[k] = append(groups[k], r)
	}
	return groups
}

// primaryCategory returns the category with the most starts, ties broken by
// category name for determinism.
func primaryCategory(rows []model.RaceResult) model.Category {
	counts := make(map[model.Category]int)
	for _, r := range rows {
		counts[r.Category]++
	}
	best := model.CategoryRoad
	bestCount := -1
	cats := make([]model.Category, 0, len(counts))
	for c := range counts {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	for _, c := range cats {
		if counts[c] > bestCount {
			best = c
			bestCount = counts[c]
		}
	}
	return best
}

// trendSlope fits a least-squares line over the metric indexed by race order
// and returns the slope. The sign is the improving/declining signal.
func trendSlope(rows []model.RaceResult, metric func(model.RaceResult) float64) float64 {
	n := float64(len(rows))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, r := range rows {
		x := float64(i)
		y := metric(r)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// racesPerWeek measures recent cadence over the trailing cadence window.
func racesPerWeek(rows []model.RaceResult, now time.Time) float64 {
	cutoff := now.Add(-cadenceWindow)
	recent := 0
	for _, r := range rows {
		if r.StartTime.After(cutoff) {
			recent++
		}
	}
	weeks := cadenceWindow.Hours() / (7 * 24)
	return float64(recent) / weeks
}
