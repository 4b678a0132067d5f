// Package ports defines the interfaces between the application core and its
// adapters: durable storage, connectivity, and the remote data service.
package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jbctechsolutions/syncbridge/internal/domain/action"
)

// ActionQueuePort is the durable, ordered queue of pending mutation intents.
// Enqueue must be durable before it returns so a crash immediately after
// does not lose the intent. List order is insertion order and survives
// process restarts.
type ActionQueuePort interface {
	// Enqueue appends a new pending action and returns its id so the caller
	// can correlate an optimistic record.
	Enqueue(ctx context.Context, actionType action.Type, payload json.RawMessage) (string, error)

	// List returns all pending actions in FIFO order, oldest first.
	List(ctx context.Context) ([]*action.PendingAction, error)

	// Remove deletes an action by id; removing an absent id is a no-op.
	Remove(ctx context.Context, id string) error

	// RemoveMany deletes a batch of actions by id.
	RemoveMany(ctx context.Context, ids []string) error

	// IncrementRetry bumps the retry counter for a failed replay attempt.
	IncrementRetry(ctx context.Context, id string) error

	// Count returns the number of pending actions, for the user-visible
	// "N changes pending" indicator.
	Count(ctx context.Context) (int, error)

	// Clear drops all pending actions. Used only for explicit user resets.
	Clear(ctx context.Context) error

	// LastSync returns when the queue last drained fully, zero if never.
	LastSync(ctx context.Context) (time.Time, error)

	// SetLastSync records a fully successful drain.
	SetLastSync(ctx context.Context, t time.Time) error
}

// DeadLetterPort stores actions abandoned during drain so they can be
// surfaced to the user and manually redriven.
type DeadLetterPort interface {
	// Add records an abandoned action.
	Add(ctx context.Context, dl *action.DeadLetter) error

	// List returns dead letters, most recent first.
	List(ctx context.Context) ([]*action.DeadLetter, error)

	// Get returns one dead letter by id.
	Get(ctx context.Context, id string) (*action.DeadLetter, error)

	// Remove deletes a dead letter by id.
	Remove(ctx context.Context, id string) error

	// Count returns the number of dead letters.
	Count(ctx context.Context) (int, error)
}
