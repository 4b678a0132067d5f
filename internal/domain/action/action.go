// Package action defines the domain model for pending mutation intents.
package action

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/jbctechsolutions/syncbridge/internal/domain/errors"
)

// Type is a closed tag identifying which remote operation an intent
// represents (e.g. "createProject", "updateTask"). The set of valid types is
// defined by the handlers registered with the remote registry, not here.
type Type string

// PendingAction is a recorded intent to perform a remote mutation, queued
// because it could not be performed immediately. The payload must be
// sufficient to replay the intent without additional context.
type PendingAction struct {
	ID         string          // Unique identifier, assigned at enqueue time
	Type       Type            // Remote operation tag
	Payload    json.RawMessage // Operation-specific replay data
	EnqueuedAt time.Time       // When the intent was captured
	Retries    int             // Failed replay attempts so far
}

// New creates a pending action with a fresh id and the current time.
// The id doubles as the dedup key sent to the remote service on replay.
func New(actionType Type, payload json.RawMessage) (*PendingAction, error) {
	if actionType == "" {
		return nil, domainErrors.ErrTypeRequired
	}
	return &PendingAction{
		ID:         uuid.New().String(),
		Type:       actionType,
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// Age returns how long the action has been waiting.
func (a *PendingAction) Age() time.Duration {
	return time.Since(a.EnqueuedAt)
}

// DeadLetter is an action abandoned during drain, kept for user-visible
// failure reporting and manual redrive.
type DeadLetter struct {
	ID       string
	Type     Type
	Payload  json.RawMessage
	Retries  int
	Reason   string
	FailedAt time.Time
}

// NewDeadLetter captures a failed action with the reason it was abandoned.
func NewDeadLetter(a *PendingAction, reason string) *DeadLetter {
	return &DeadLetter{
		ID:       a.ID,
		Type:     a.Type,
		Payload:  a.Payload,
		Retries:  a.Retries,
		Reason:   reason,
		FailedAt: time.Now().UTC(),
	}
}
