package ports

import (
	"context"
	"time"
)

// DrainLease grants exclusive drain rights across replicas for up to ttl.
// When ok is false another holder owns the lease and held is nil.
type DrainLease interface {
	TryAcquire(ctx context.Context, ttl time.Duration) (held HeldLease, ok bool, err error)
}

// HeldLease is one successful acquisition of a DrainLease.
type HeldLease interface {
	// Renew extends the lease by ttl from now. It reports false once another holder owns the lease.
	Renew(ctx context.Context, ttl time.Duration) (bool, error)
	// Release gives the lease up. Releasing a lease that was lost is a no-op.
	Release(ctx context.Context) error
}
