package recommend

import (
	"sync"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/model"
)

// computationResult is what every waiter attached to one computation receives.
type computationResult struct {
	recs       []model.ScoredOpportunity
	skipped    int
	generation string
	err        error
}

// flight is one in-flight computation. The leader closes done exactly once
// after res is set; waiters only ever read res after done is closed.
type flight struct {
	done chan struct{}
	res  computationResult
}

// flightRegistry implements request coalescing: the first caller for a key
// registers a flight (the atomic Empty -> Computing transition), later
// callers join it. At most one computation runs per key.
type flightRegistry struct {
	mu      sync.Mutex
	flights map[string]*flight
}

func newFlightRegistry() *flightRegistry {
	return &flightRegistry{flights: make(map[string]*flight)}
}

// join returns the flight for key and whether the caller is the leader who
// must run the computation. A completed flight still present in the registry
// is a corrupted state; it is reset and reported via healed so the caller can
// log it and proceed as a fresh leader.
func (r *flightRegistry) join(key string) (f *flight, leader, healed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.flights[key]; ok {
		select {
		case <-existing.done:
			// Completed but never unregistered.
			delete(r.flights, key)
			healed = true
		default:
			return existing, false, false
		}
	}
	f = &flight{done: make(chan struct{})}
	r.flights[key] = f
	return f, true, healed
}

// complete publishes the result, wakes all waiters, and unregisters the
// flight. If the registered flight for key is not f, the registry was reset
// underneath us (invalidate during computation); waiters on f still get the
// result, and the registry is left alone.
func (r *flightRegistry) complete(key string, f *flight, res computationResult) {
	r.mu.Lock()
	if cur, ok := r.flights[key]; ok && cur == f {
		delete(r.flights, key)
	}
	r.mu.Unlock()
	f.res = res
	close(f.done)
}

// size returns the number of in-flight computations.
func (r *flightRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flights)
}
