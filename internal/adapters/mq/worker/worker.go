// Package worker drains the sync-notice queue and warms recommendation
// caches in the background.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/adapters/mq/queue"
	"github.com/BenGiese22/should-i-race-this-sub003/pkg/logger"
	"github.com/BenGiese22/should-i-race-this-sub003/pkg/metrics"
)

// Default pool configuration constants.
const (
	defaultWorkerCount = 2
	warmupTimeout      = 30 * time.Second
)

// ErrShutdownTimeout reports that workers did not drain in time.
var ErrShutdownTimeout = errors.New("worker shutdown timed out")

// Warmer recomputes a driver's recommendations after their data changed.
type Warmer interface {
	NotifyDataSync(ctx context.Context, driverID string) error
}

// Pool runs a fixed set of workers over a shared notice queue.
type Pool struct {
	queue   queue.Queue
	warmer  Warmer
	count   int
	log     logger.Logger
	wg      sync.WaitGroup
	startMu sync.Mutex
	started bool
}

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithWorkerCount sets how many workers drain the queue.
func WithWorkerCount(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.count = n
		}
	}
}

// WithLogger sets the pool logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.log = l
		}
	}
}

// NewPool creates a worker pool over q that warms caches through warmer.
func NewPool(q queue.Queue, warmer Warmer, opts ...Option) *Pool {
	p := &Pool{
		queue:  q,
		warmer: warmer,
		count:  defaultWorkerCount,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Get().Named("sync-worker")
	}
	return p
}

// Start launches the workers. Safe to call once; later calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	if p.started {
		return
	}
	p.started = true

	notices := p.queue.Dequeue(ctx)
	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.run(ctx, notices)
	}
}

func (p *Pool) run(ctx context.Context, notices <-chan queue.Notice) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notices:
			if !ok {
				return
			}
			p.process(ctx, n)
		}
	}
}

// process warms one driver. Failures are logged and counted, never fatal;
// the next request for the driver recomputes on demand anyway.
func (p *Pool) process(ctx context.Context, n queue.Notice) {
	warmCtx, cancel := context.WithTimeout(ctx, warmupTimeout)
	defer cancel()

	if err := p.warmer.NotifyDataSync(warmCtx, n.DriverID); err != nil {
		metrics.RecordSyncWarmupError()
		p.log.Warn(ctx, "warm-up failed",
			logger.String("driver_id", n.DriverID),
			logger.String("notice_id", n.NoticeID),
			logger.Error(err))
		return
	}
	metrics.RecordSyncWarmup()
	p.log.Debug(ctx, "warm-up complete",
		logger.String("driver_id", n.DriverID),
		logger.Float64("queue_delay_ms", float64(time.Since(n.ReceivedAt).Milliseconds())))
}

// Shutdown closes the queue and waits for in-flight warm-ups to finish or
// ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	_ = p.queue.Close()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ErrShutdownTimeout
	}
}
