package perfstore

import (
	"context"
	"sync"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/model"
)

// MemoryStore implements Store over in-memory maps. It backs the demo server
// and tests; the write methods model the external sync process.
type MemoryStore struct {
	mu          sync.RWMutex
	results     map[string][]model.RaceResult // keyed by driver id
	schedule    []model.Opportunity
	syncTimes   map[string]time.Time
	unavailable bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results:   make(map[string][]model.RaceResult),
		syncTimes: make(map[string]time.Time),
	}
}

// AddResults appends session rows for a driver and stamps the sync time.
func (s *MemoryStore) AddResults(driverID string, rows ...model.RaceResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[driverID] = append(s.results[driverID], rows...)
	s.syncTimes[driverID] = time.Now()
}

// SetSchedule replaces the known future schedule.
func (s *MemoryStore) SetSchedule(opps []model.Opportunity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule = append([]model.Opportunity(nil), opps...)
}

// SetUnavailable toggles simulated outage. While set, every query returns
// ErrUnavailable.
func (s *MemoryStore) SetUnavailable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = v
}

// ListRaceResults implements Store.
func (s *MemoryStore) ListRaceResults(ctx context.Context, driverID string, f ResultFilter) ([]model.RaceResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.unavailable {
		return nil, ErrUnavailable
	}
	var out []model.RaceResult
	for _, r := range s.results[driverID] {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListFieldResults implements Store.
func (s *MemoryStore) ListFieldResults(ctx context.Context, seriesID, trackID string) ([]model.RaceResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.unavailable {
		return nil, ErrUnavailable
	}
	f := ResultFilter{
		SessionTypes: []model.SessionType{model.SessionRace},
		SeriesID:     seriesID,
		TrackID:      trackID,
	}
	var out []model.RaceResult
	for _, rows := range s.results {
		for _, r := range rows {
			if f.Matches(r) {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// ListScheduleEntries implements Store.
func (s *MemoryStore) ListScheduleEntries(ctx context.Context, seasonYear, seasonQuarter int) ([]model.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.unavailable {
		return nil, ErrUnavailable
	}
	var out []model.Opportunity
	for _, o := range s.schedule {
		if o.SeasonYear == seasonYear && o.SeasonQuarter == seasonQuarter {
			out = append(out, o)
		}
	}
	return out, nil
}

// LastSyncTimestamp implements Store.
func (s *MemoryStore) LastSyncTimestamp(ctx context.Context, driverID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.unavailable {
		return time.Time{}, false, ErrUnavailable
	}
	ts, ok := s.syncTimes[driverID]
	return ts, ok, nil
}
