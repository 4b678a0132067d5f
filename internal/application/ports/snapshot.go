package ports

import (
	"context"
	"encoding/json"

	"github.com/jbctechsolutions/syncbridge/internal/domain/snapshot"
)

// SnapshotStorePort is the durable last-known-good cache, one entry per
// logical resource key. Every read through this port is a fallback by
// definition; authoritative data always comes from the remote service.
type SnapshotStorePort interface {
	// Put stores data under key with the current timestamp, overwriting any
	// existing entry. Implementations log and swallow storage failures: a
	// cache write must never fail an otherwise successful remote call.
	Put(ctx context.Context, key string, data json.RawMessage)

	// Get returns the snapshot for key, or nil if absent. A corrupt or
	// unreadable entry is treated as absent.
	Get(ctx context.Context, key string) (*snapshot.Snapshot, error)

	// Clear removes the entry for key.
	Clear(ctx context.Context, key string) error

	// ClearAll removes every entry.
	ClearAll(ctx context.Context) error

	// Keys returns all cached resource keys.
	Keys(ctx context.Context) ([]string, error)
}
