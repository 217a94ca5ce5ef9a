package recommend

import "errors"

// Sentinel error kinds for the coordinator. These allow errors.Is/As from
// callers.
var (
	// ErrDataUnavailable signals the performance store was unreachable; the
	// whole computation fails and is retryable.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrComputationTimeout signals a waiter timed out while attached to an
	// in-flight computation. The computation itself keeps running.
	ErrComputationTimeout = errors.New("computation timeout")

	// ErrCacheCorruption signals an unexpected per-key state transition. The
	// key is reset and the request retried against a fresh computation.
	ErrCacheCorruption = errors.New("cache corruption")

	// ErrMissingDriver signals a request without a driver id.
	ErrMissingDriver = errors.New("missing driver id")
)
