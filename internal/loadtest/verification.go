package loadtest

import (
	"context"
	"fmt"
	"sort"

	"github.com/BenGiese22/should-i-race-this-sub003/pkg/logger"
)

// verifyResults checks the consistency of the sampled responses.
func verifyResults(ctx context.Context, config *Config, samples map[string]recommendationResponse, stats *Stats) error {
	logger.Get().Info(ctx, "verifying results")

	if len(samples) == 0 {
		return fmt.Errorf("no responses to verify")
	}

	for driverID, rec := range samples {
		if rec.DriverID != driverID {
			return fmt.Errorf("response for %s carries driver_id %s", driverID, rec.DriverID)
		}
		if err := verifyOrdering(rec); err != nil {
			return fmt.Errorf("driver %s: %w", driverID, err)
		}
		if err := verifyScoreBounds(rec); err != nil {
			return fmt.Errorf("driver %s: %w", driverID, err)
		}
	}

	// With more requests than drivers, repeat reads must have been served
	// from cache or coalesced onto an in-flight computation.
	if stats.RequestsIssued > config.Drivers {
		reused := stats.CacheHits + stats.CacheCoalesced
		if reused == 0 {
			logger.Get().Warn(ctx, "no request reuse observed; cache may be misconfigured")
		}
	}

	displayTopDrivers(ctx, samples, config.Verbose)

	logger.Get().Info(ctx, "result verification completed")
	return nil
}

// verifyOrdering checks the list is sorted by overall score descending.
func verifyOrdering(rec recommendationResponse) error {
	for i := 1; i < len(rec.Recommendations); i++ {
		if rec.Recommendations[i].Score.Overall > rec.Recommendations[i-1].Score.Overall {
			return fmt.Errorf("recommendations not sorted: entry %d outranks entry %d", i, i-1)
		}
	}
	return nil
}

// verifyScoreBounds checks every overall score is within [0,100].
func verifyScoreBounds(rec recommendationResponse) error {
	for i, r := range rec.Recommendations {
		if r.Score.Overall < 0 || r.Score.Overall > 100 {
			return fmt.Errorf("entry %d has out-of-range score %d", i, r.Score.Overall)
		}
	}
	return nil
}

// displayTopDrivers logs each sampled driver's best opportunity.
func displayTopDrivers(ctx context.Context, samples map[string]recommendationResponse, verbose bool) {
	if !verbose {
		return
	}

	ids := make([]string, 0, len(samples))
	for id := range samples {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		rec := samples[id]
		if len(rec.Recommendations) == 0 {
			logger.Get().Info(ctx, "no recommendations", logger.String("driver_id", id))
			continue
		}
		top := rec.Recommendations[0]
		logger.Get().Info(ctx, "top recommendation",
			logger.String("driver_id", id),
			logger.String("series_id", top.Opportunity.SeriesID),
			logger.String("track_id", top.Opportunity.TrackID),
			logger.Int("overall", top.Score.Overall),
			logger.String("cache_status", rec.Metadata.CacheStatus))
	}
}
