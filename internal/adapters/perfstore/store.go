// Package perfstore defines the read-only query contract over historical
// race results and the future schedule. The production implementation lives
// outside this core; MemoryStore stands in behind the same contract.
package perfstore

import (
	"context"
	"errors"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/model"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrUnavailable signals the store itself is unreachable. Sparse data is
	// never an error.
	ErrUnavailable = errors.New("performance store unavailable")

	// ErrBadPayload signals a provider row that could not be normalized.
	ErrBadPayload = errors.New("unrecognized result payload")
)

// ResultFilter narrows a result query. Zero values mean "no constraint".
type ResultFilter struct {
	// SessionTypes restricts rows to the given session types. Empty means all.
	SessionTypes []model.SessionType

	// SeriesID and TrackID restrict rows to one series and/or track.
	SeriesID string
	TrackID  string

	// Since drops rows that started before the given time.
	Since time.Time
}

// RaceOnly is the filter the aggregator uses: race sessions, all series.
func RaceOnly() ResultFilter {
	return ResultFilter{SessionTypes: []model.SessionType{model.SessionRace}}
}

// Matches reports whether a result row passes the filter.
func (f ResultFilter) Matches(r model.RaceResult) bool {
	if len(f.SessionTypes) > 0 {
		ok := false
		for _, st := range f.SessionTypes {
			if r.SessionType == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.SeriesID != "" && r.SeriesID != f.SeriesID {
		return false
	}
	if f.TrackID != "" && r.TrackID != f.TrackID {
		return false
	}
	if !f.Since.IsZero() && r.StartTime.Before(f.Since) {
		return false
	}
	return true
}

// Store is the query surface consumed by the aggregation core.
type Store interface {
	// ListRaceResults returns a driver's historical session rows matching the
	// filter. An unknown driver yields an empty slice, not an error.
	ListRaceResults(ctx context.Context, driverID string, f ResultFilter) ([]model.RaceResult, error)

	// ListFieldResults returns race rows across all drivers for a
	// series/track pair, used to build population baselines.
	ListFieldResults(ctx context.Context, seriesID, trackID string) ([]model.RaceResult, error)

	// ListScheduleEntries returns the known future schedule for a season.
	ListScheduleEntries(ctx context.Context, seasonYear, seasonQuarter int) ([]model.Opportunity, error)

	// LastSyncTimestamp returns when the driver's history was last synced.
	// The second return is false when the driver has never been synced.
	LastSyncTimestamp(ctx context.Context, driverID string) (time.Time, bool, error)
}
