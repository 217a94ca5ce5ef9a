// Package cache provides the shared in-memory TTL store for computed
// recommendation lists. It is intentionally volatile: lost on restart,
// rebuilt lazily.
package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/model"
	"github.com/BenGiese22/should-i-race-this-sub003/pkg/metrics"
)

// Default cache configuration constants.
const (
	defaultTTL             = 15 * time.Minute
	defaultCleanupInterval = 5 * time.Minute
)

// Entry is one cached recommendation list plus the bookkeeping needed for
// TTL expiry and targeted invalidation.
type Entry struct {
	DriverID        string
	Recommendations []model.ScoredOpportunity
	OpportunityKeys map[string]struct{}
	CreatedAt       time.Time
	Generation      string // computation generation token
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Evictions     int64   `json:"evictions"`
	TotalRequests int64   `json:"total_requests"`
	HitRate       float64 `json:"hit_rate"`
	Size          int     `json:"size"`
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithTTL sets the entry time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCleanupInterval sets how often expired entries are swept.
func WithCleanupInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.cleanupInterval = d
		}
	}
}

// WithClock overrides the time source, used by TTL boundary tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is a thread-safe TTL cache keyed by (driver id, filter hash).
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration

	hits      int64
	misses    int64
	evictions int64

	cleanupInterval time.Duration
	now             func() time.Time
	stopCh          chan struct{}
	stopOnce        sync.Once
}

// NewStore creates a cache store and starts its background sweep.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries:         make(map[string]Entry),
		ttl:             defaultTTL,
		cleanupInterval: defaultCleanupInterval,
		now:             time.Now,
		stopCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.cleanupLoop()
	return s
}

// TTL returns the configured entry time-to-live.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Get returns a live entry. Expired entries are evicted and count as misses.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.RLock()
	entry, exists := s.entries[key]
	s.mu.RUnlock()

	if !exists {
		s.recordMiss()
		return Entry{}, false
	}
	if s.now().Sub(entry.CreatedAt) >= s.ttl {
		s.mu.Lock()
		// Re-check under the write lock; a fresher entry may have landed.
		if cur, ok := s.entries[key]; ok && cur.Generation == entry.Generation {
			delete(s.entries, key)
			s.evictions++
		}
		s.mu.Unlock()
		s.recordMiss()
		return Entry{}, false
	}
	s.recordHit()
	return entry, true
}

// Set stores an entry, stamping creation time if unset.
func (s *Store) Set(key string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	s.entries[key] = e
	metrics.UpdateCacheSize(len(s.entries))
}

// Delete drops one key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; ok {
		delete(s.entries, key)
		s.evictions++
	}
	metrics.UpdateCacheSize(len(s.entries))
}

// DeleteFunc drops every entry the predicate matches and returns the count.
func (s *Store) DeleteFunc(match func(key string, e Entry) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for k, e := range s.entries {
		if match(k, e) {
			delete(s.entries, k)
			s.evictions++
			dropped++
		}
	}
	metrics.UpdateCacheSize(len(s.entries))
	return dropped
}

// Clear drops everything but keeps counters.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictions += int64(len(s.entries))
	s.entries = make(map[string]Entry)
	metrics.UpdateCacheSize(0)
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats returns a snapshot of the counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := s.hits + s.misses
	rate := 0.0
	if total > 0 {
		rate = float64(s.hits) / float64(total)
	}
	return Stats{
		Hits:          s.hits,
		Misses:        s.misses,
		Evictions:     s.evictions,
		TotalRequests: total,
		HitRate:       rate,
		Size:          len(s.entries),
	}
}

// Close stops the background sweep.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if now.Sub(e.CreatedAt) >= s.ttl {
			delete(s.entries, k)
			s.evictions++
		}
	}
	metrics.UpdateCacheSize(len(s.entries))
}

func (s *Store) recordHit() {
	s.mu.Lock()
	s.hits++
	s.mu.Unlock()
	metrics.RecordCacheHit()
}

func (s *Store) recordMiss() {
	s.mu.Lock()
	s.misses++
	s.mu.Unlock()
	metrics.RecordCacheMiss()
}

// GenerateKey builds a stable cache key from a driver id and the filter
// parameters. Identical params always hash identically.
func GenerateKey(driverID string, params any) string {
	data, err := json.Marshal(params)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", params))
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s|%x", driverID, sum[:8])
}
