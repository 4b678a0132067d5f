// Package optimistic provides the optimistic-record wrapper and the single
// reconciliation path every domain store shares. A queued write is projected
// into the store's visible collection as a Record; once the underlying
// action's outcome is known the record is replaced or removed exactly once.
package optimistic

import (
	"sync"
	"time"
)

// Record wraps a domain value with a visible pending marker and the id of
// the pending action that will confirm or supersede it. A Record is never
// indistinguishable from a confirmed value: Pending is always true while the
// wrapper exists.
type Record[T any] struct {
	Value      T
	Pending    bool
	ActionID   string
	EnqueuedAt time.Time
}

// NewRecord creates a pending record for a queued action.
func NewRecord[T any](value T, actionID string) Record[T] {
	return Record[T]{
		Value:      value,
		Pending:    true,
		ActionID:   actionID,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Item is one element of a Set's visible collection: either a confirmed
// value or a pending record.
type Item[T any] struct {
	Value    T
	Pending  bool
	ActionID string // Empty for confirmed values
}

// Set is an ordered in-memory collection a domain store embeds to hold
// confirmed values alongside pending projections. All methods are safe for
// concurrent use; reconciliation of a given action id happens exactly once.
type Set[T any] struct {
	mu    sync.RWMutex
	items []Item[T]
}

// NewSet creates an empty set.
func NewSet[T any]() *Set[T] {
	return &Set[T]{}
}

// SetConfirmed replaces the confirmed portion of the collection with the
// given values, keeping any pending records in place. Used when a fresh
// server read arrives.
func (s *Set[T]) SetConfirmed(values []T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]Item[T], 0, len(values)+len(s.items))
	for _, it := range s.items {
		if it.Pending {
			kept = append(kept, it)
		}
	}
	for _, v := range values {
		kept = append(kept, Item[T]{Value: v})
	}
	s.items = kept
}

// Add splices a pending record into the collection, newest first.
func (s *Set[T]) Add(rec Record[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]Item[T]{{Value: rec.Value, Pending: true, ActionID: rec.ActionID}}, s.items...)
}

// Confirm replaces the pending record for actionID with the canonical
// server value. Returns false if no pending record matches; a second call
// for the same id is a no-op.
func (s *Set[T]) Confirm(actionID string, canonical T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.items {
		if it.Pending && it.ActionID == actionID {
			s.items[i] = Item[T]{Value: canonical}
			return true
		}
	}
	return false
}

// Reject removes the pending record for actionID after a permanent failure.
// Returns false if no pending record matches.
func (s *Set[T]) Reject(actionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.items {
		if it.Pending && it.ActionID == actionID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Values returns the visible collection in order. Pending items carry their
// marker so the caller can render a "will sync" badge.
func (s *Set[T]) Values() []Item[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item[T], len(s.items))
	copy(out, s.items)
	return out
}

// PendingCount returns the number of unconfirmed records.
func (s *Set[T]) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, it := range s.items {
		if it.Pending {
			n++
		}
	}
	return n
}
