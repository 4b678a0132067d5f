package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	domainErrors "github.com/jbctechsolutions/syncbridge/internal/domain/errors"
)

func TestLeaseRepository_AcquireAndRelease(t *testing.T) {
	repo := NewLeaseRepository(openTestDB(t))
	ctx := context.Background()

	if err := repo.Acquire(ctx, "drain", "proc-a", time.Minute); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	owner, held, err := repo.Holder(ctx, "drain")
	if err != nil {
		t.Fatalf("Holder() error = %v", err)
	}
	if !held || owner != "proc-a" {
		t.Errorf("Holder() = (%q, %v), want (proc-a, true)", owner, held)
	}

	if err := repo.Release(ctx, "drain", "proc-a"); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	_, held, err = repo.Holder(ctx, "drain")
	if err != nil {
		t.Fatalf("Holder() error = %v", err)
	}
	if held {
		t.Error("Holder() held = true after Release")
	}
}

func TestLeaseRepository_Acquire_HeldByOther(t *testing.T) {
	repo := NewLeaseRepository(openTestDB(t))
	ctx := context.Background()

	if err := repo.Acquire(ctx, "drain", "proc-a", time.Minute); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	err := repo.Acquire(ctx, "drain", "proc-b", time.Minute)
	if !errors.Is(err, domainErrors.ErrLeaseHeld) {
		t.Errorf("Acquire() by second owner error = %v, want ErrLeaseHeld", err)
	}

	// The original holder can re-acquire its own live lease.
	if err := repo.Acquire(ctx, "drain", "proc-a", time.Minute); err != nil {
		t.Errorf("re-Acquire() by holder error = %v", err)
	}
}

func TestLeaseRepository_Acquire_StealsExpired(t *testing.T) {
	repo := NewLeaseRepository(openTestDB(t))
	ctx := context.Background()

	// A lease with a ttl already in the past is immediately stealable.
	if err := repo.Acquire(ctx, "drain", "proc-a", -time.Second); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if err := repo.Acquire(ctx, "drain", "proc-b", time.Minute); err != nil {
		t.Fatalf("Acquire() of expired lease error = %v", err)
	}

	owner, held, err := repo.Holder(ctx, "drain")
	if err != nil {
		t.Fatalf("Holder() error = %v", err)
	}
	if !held || owner != "proc-b" {
		t.Errorf("Holder() = (%q, %v), want (proc-b, true)", owner, held)
	}
}

func TestLeaseRepository_Renew(t *testing.T) {
	repo := NewLeaseRepository(openTestDB(t))
	ctx := context.Background()

	if err := repo.Acquire(ctx, "drain", "proc-a", time.Minute); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := repo.Renew(ctx, "drain", "proc-a", time.Hour); err != nil {
		t.Errorf("Renew() by holder error = %v", err)
	}

	err := repo.Renew(ctx, "drain", "proc-b", time.Hour)
	if !errors.Is(err, domainErrors.ErrLeaseHeld) {
		t.Errorf("Renew() by non-holder error = %v, want ErrLeaseHeld", err)
	}
}

func TestLeaseRepository_Release_NonHolderNoOp(t *testing.T) {
	repo := NewLeaseRepository(openTestDB(t))
	ctx := context.Background()

	if err := repo.Acquire(ctx, "drain", "proc-a", time.Minute); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := repo.Release(ctx, "drain", "proc-b"); err != nil {
		t.Fatalf("Release() by non-holder error = %v", err)
	}

	owner, held, _ := repo.Holder(ctx, "drain")
	if !held || owner != "proc-a" {
		t.Errorf("Holder() = (%q, %v), release by non-holder must not drop the lease", owner, held)
	}
}

func TestLeaseRepository_Holder_NoLease(t *testing.T) {
	repo := NewLeaseRepository(openTestDB(t))

	owner, held, err := repo.Holder(context.Background(), "drain")
	if err != nil {
		t.Fatalf("Holder() error = %v", err)
	}
	if held || owner != "" {
		t.Errorf("Holder() = (%q, %v), want (\"\", false)", owner, held)
	}
}

func TestFormatLeaseTime_OrderMatchesTime(t *testing.T) {
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	// Pairs chosen so that RFC3339Nano, which trims trailing fractional
	// zeros, would sort them the wrong way round as strings.
	tests := []struct {
		name           string
		earlier, later time.Time
	}{
		{"half second vs 510ms", base.Add(500 * time.Millisecond), base.Add(510 * time.Millisecond)},
		{"whole second vs 1ns", base, base.Add(time.Nanosecond)},
		{"100ms vs 105ms", base.Add(100 * time.Millisecond), base.Add(105 * time.Millisecond)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := formatLeaseTime(tt.earlier), formatLeaseTime(tt.later)
			if len(a) != len(b) {
				t.Fatalf("formatLeaseTime() widths differ: %q vs %q", a, b)
			}
			if a >= b {
				t.Errorf("formatLeaseTime() order: %q >= %q, want string order to match time order", a, b)
			}
		})
	}
}

func TestFormatLeaseTime_ParsesAsRFC3339Nano(t *testing.T) {
	in := time.Date(2026, 8, 29, 12, 0, 0, 500_000_000, time.UTC)

	out, err := time.Parse(time.RFC3339Nano, formatLeaseTime(in))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !out.Equal(in) {
		t.Errorf("round-trip = %v, want %v", out, in)
	}
}
