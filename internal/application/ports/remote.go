package ports

import (
	"context"
	"encoding/json"

	"github.com/jbctechsolutions/syncbridge/internal/domain/action"
)

// Envelope is the {data, error} contract this core consumes from the remote
// service. The core has no dependency on the transport, only on this shape.
type Envelope struct {
	Data json.RawMessage
	Err  error
}

// RemoteCall is a single remote operation supplied per Execute call by the
// domain store.
type RemoteCall func(ctx context.Context) Envelope

// ReplayHandler replays one queued action against the remote service. The
// dedup key is the action id; HTTP adapters send it as an Idempotency-Key
// header so the server can detect duplicate replays after a crash.
type ReplayHandler func(ctx context.Context, payload json.RawMessage, dedupeKey string) (json.RawMessage, error)

// RemoteRegistryPort resolves an action type to its replay handler.
type RemoteRegistryPort interface {
	// Handler returns the replay handler for the given action type, or false
	// if none is registered.
	Handler(actionType action.Type) (ReplayHandler, bool)

	// Types returns all registered action types.
	Types() []action.Type
}
