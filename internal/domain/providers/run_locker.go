package providers

import (
	"context"
	"time"
)

// RunLocker serializes pipeline runs per (source, metric) key. Overlapping
// runs for the same key would interleave partial full-replace upserts, so
// Acquire must fail while a prior run holds the lock.
type RunLocker interface {
	// Acquire takes the lock for key, returning a release function. It
	// returns a conflict error if the lock is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}
