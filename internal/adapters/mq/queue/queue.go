// Package queue buffers data-sync notices between the HTTP intake and the
// warm-up workers.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 10000
)

// Notice tells the service that a driver's history changed upstream and
// their cached recommendations are stale.
type Notice struct {
	NoticeID   string
	DriverID   string
	ReceivedAt time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a notice to the queue.
	// Returns false if the queue is full and the notice was not enqueued.
	Enqueue(ctx context.Context, n Notice) bool

	// Dequeue returns a channel that receives notices as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Notice

	// Len returns the current number of queued notices.
	Len(ctx context.Context) int

	// Close shuts down the queue. After closing, no new notices can be
	// enqueued and the dequeue channel drains then closes.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	notices  chan Notice
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of buffered notices.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.notices = make(chan Notice, q.capacity)
	metrics.UpdateSyncQueueSize(0)
	return q
}

// Enqueue adds a notice to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, n Notice) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordSyncNoticeDropped()
		return false
	}

	select {
	case q.notices <- n:
		metrics.RecordSyncNoticeAccepted()
		metrics.UpdateSyncQueueSize(len(q.notices))
		return true
	case <-ctx.Done():
		metrics.RecordSyncNoticeDropped()
		return false
	default:
		// Buffer full.
		metrics.RecordSyncNoticeDropped()
		return false
	}
}

// Dequeue returns a channel that receives notices as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Notice {
	out := make(chan Notice)
	go func() {
		defer close(out)
		for n := range q.notices {
			select {
			case out <- n:
				metrics.UpdateSyncQueueSize(len(q.notices))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued notices.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.notices)
	metrics.UpdateSyncQueueSize(size)
	return size
}

// Close shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.notices)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
