package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jbctechsolutions/syncbridge/internal/application/ports"
	domainErrors "github.com/jbctechsolutions/syncbridge/internal/domain/errors"
)

// Compile-time check that LeaseRepository implements LeasePort.
var _ ports.LeasePort = (*LeaseRepository)(nil)

// leaseTimeLayout is a fixed-width UTC timestamp. The acquire query
// compares expiries as strings inside SQLite, so the encoding must make
// lexicographic order match temporal order; RFC3339Nano does not, since
// it trims trailing fractional zeros.
const leaseTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatLeaseTime(t time.Time) string {
	return t.UTC().Format(leaseTimeLayout)
}

// LeaseRepository implements LeasePort over the shared SQLite store. The
// lease row is the multi-process drain lock: an insert-or-steal write that
// only succeeds when no live lease exists for another owner.
type LeaseRepository struct {
	db *sql.DB
}

// NewLeaseRepository creates a new lease repository.
func NewLeaseRepository(db *sql.DB) *LeaseRepository {
	return &LeaseRepository{db: db}
}

// Acquire takes the named lease for owner with the given ttl. Returns
// ErrLeaseHeld if a different owner holds an unexpired lease.
func (r *LeaseRepository) Acquire(ctx context.Context, name, owner string, ttl time.Duration) error {
	now := time.Now().UTC()
	expires := formatLeaseTime(now.Add(ttl))

	// The WHERE clause on the conflict update makes this a compare-and-swap:
	// the row is only rewritten when it is ours already or has expired.
	query := `
		INSERT INTO leases (name, owner, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET owner = excluded.owner, expires_at = excluded.expires_at
		WHERE leases.owner = excluded.owner OR leases.expires_at <= ?
	`

	result, err := r.db.ExecContext(ctx, query, name, owner, expires, formatLeaseTime(now))
	if err != nil {
		return fmt.Errorf("failed to acquire lease: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check lease result: %w", err)
	}
	if rows == 0 {
		return domainErrors.NewError(domainErrors.CodeDrain,
			fmt.Sprintf("lease %q unavailable", name), domainErrors.ErrLeaseHeld)
	}

	return nil
}

// Renew extends the lease expiry. Fails if owner no longer holds it.
func (r *LeaseRepository) Renew(ctx context.Context, name, owner string, ttl time.Duration) error {
	expires := formatLeaseTime(time.Now().Add(ttl))

	result, err := r.db.ExecContext(ctx,
		`UPDATE leases SET expires_at = ? WHERE name = ? AND owner = ?`,
		expires, name, owner)
	if err != nil {
		return fmt.Errorf("failed to renew lease: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check lease result: %w", err)
	}
	if rows == 0 {
		return domainErrors.NewError(domainErrors.CodeDrain,
			fmt.Sprintf("lease %q lost", name), domainErrors.ErrLeaseHeld)
	}

	return nil
}

// Release drops the lease if owner holds it; otherwise a no-op.
func (r *LeaseRepository) Release(ctx context.Context, name, owner string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM leases WHERE name = ? AND owner = ?`, name, owner); err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}

// Holder returns the current owner of the lease and whether it is live.
func (r *LeaseRepository) Holder(ctx context.Context, name string) (string, bool, error) {
	var (
		owner     string
		expiresAt string
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT owner, expires_at FROM leases WHERE name = ?`, name,
	).Scan(&owner, &expiresAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get lease holder: %w", err)
	}

	expires, err := time.Parse(time.RFC3339Nano, expiresAt)
	if err != nil {
		return "", false, fmt.Errorf("failed to parse lease expiry: %w", err)
	}

	if time.Now().UTC().After(expires) {
		return owner, false, nil
	}
	return owner, true, nil
}
