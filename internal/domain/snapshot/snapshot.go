// Package snapshot defines the domain model for cached read results.
package snapshot

import (
	"encoding/json"
	"time"
)

// Snapshot is the last known-good read result for a logical resource key.
// There is at most one snapshot per key; a newer successful read overwrites
// the previous one. Snapshots are never proactively expired: staleness is
// surfaced through CachedAt, not enforced.
type Snapshot struct {
	Key      string          // Domain-scoped cache identifier, one per logical read query
	Data     json.RawMessage // Last successfully fetched value
	CachedAt time.Time       // When the value was captured
}

// Age returns how stale the snapshot is.
func (s *Snapshot) Age() time.Duration {
	return time.Since(s.CachedAt)
}

// OlderThan reports whether the snapshot was captured before the given
// duration ago. Callers use this to decide whether to warn about staleness;
// the cache itself never evicts on age.
func (s *Snapshot) OlderThan(d time.Duration) bool {
	return s.Age() > d
}
