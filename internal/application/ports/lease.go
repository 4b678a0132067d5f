package ports

import (
	"context"
	"time"
)

// LeasePort is the shared-storage lock that keeps two processes of the same
// client identity from draining the queue concurrently. A lease is a named
// record with an owner id and an expiry; an expired lease may be stolen.
type LeasePort interface {
	// Acquire takes the named lease for owner with the given ttl. Returns
	// ErrLeaseHeld if a different owner holds an unexpired lease.
	Acquire(ctx context.Context, name, owner string, ttl time.Duration) error

	// Renew extends the lease expiry. Fails if owner no longer holds it.
	Renew(ctx context.Context, name, owner string, ttl time.Duration) error

	// Release drops the lease if owner holds it; otherwise a no-op.
	Release(ctx context.Context, name, owner string) error

	// Holder returns the current owner of the lease and whether it is live.
	Holder(ctx context.Context, name string) (owner string, held bool, err error)
}
