// Package dedupe tracks sync-notice IDs so redelivered notifications are
// processed at most once.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Default bound on remembered notice IDs.
const defaultMaxSize = 50000

// Deduper records seen notice IDs.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it if
	// not. Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets an ID so a redelivery can be retried. Used when a
	// notice was recorded but could not be enqueued.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper remembers IDs in a map plus a FIFO ring. When the bound
// is reached the oldest remembered ID is evicted, so a very old redelivery
// may slip through; downstream warm-up is idempotent, which makes that
// acceptable.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // id -> ring slot
	ring    []string
	next    int // ring slot the next insert overwrites
	maxSize int
	size    atomic.Int64
}

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds how many notice IDs are remembered. Values <= 0 keep
// the default bound.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		if maxSize > 0 {
			d.maxSize = maxSize
		}
	}
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int, d.maxSize)
	d.ring = make([]string, d.maxSize)
	return d
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	// Evict whatever still occupies the target ring slot.
	if old := d.ring[d.next]; old != "" {
		delete(d.seen, old)
		d.size.Add(-1)
	}
	d.ring[d.next] = id
	d.seen[id] = d.next
	d.next = (d.next + 1) % d.maxSize
	d.size.Add(1)
	return false
}

// Unrecord implements Deduper.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.seen[id]
	if !ok {
		return
	}
	d.ring[slot] = ""
	delete(d.seen, id)
	d.size.Add(-1)
}

// Size returns the number of remembered IDs.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
