// Package executor implements the offline-aware execution wrapper that every
// remote-backed operation flows through. It decides, per call, whether to go
// to the remote service, fall back to the snapshot cache, or capture the
// write as a pending action for later replay.
package executor

import (
	"context"
	"encoding/json"

	"github.com/jbctechsolutions/syncbridge/internal/application/ports"
	"github.com/jbctechsolutions/syncbridge/internal/domain/action"
	"github.com/jbctechsolutions/syncbridge/internal/domain/errors"
	"github.com/jbctechsolutions/syncbridge/internal/domain/snapshot"
	"github.com/jbctechsolutions/syncbridge/internal/infrastructure/logging"
	"github.com/jbctechsolutions/syncbridge/internal/infrastructure/tracing"
)

// Request describes one operation to execute.
type Request struct {
	// CacheKey is the snapshot cache key for this resource. Empty disables
	// cache fallback and refresh.
	CacheKey string

	// Remote performs the actual call. Required for reads; optional for
	// writes, which can always be captured for replay instead.
	Remote ports.RemoteCall

	// ActionType and Payload describe the mutation intent for deferred
	// replay. Required for writes.
	ActionType action.Type
	Payload    json.RawMessage

	// Write marks mutations. Reads are never queued.
	Write bool
}

// Result is the tagged outcome of an Execute call. Exactly one of the
// following holds: Data came from the remote (no flags), Data came from the
// cache (FromCache), the write was captured (Queued, possibly with cached
// Data), or Err is set.
type Result struct {
	Data      json.RawMessage
	Err       error
	FromCache bool
	Queued    bool
	ActionID  string
}

// Executor routes operations between the remote service, the snapshot cache
// and the pending-action queue based on connectivity.
type Executor struct {
	monitor ports.ConnectivityPort
	cache   ports.SnapshotStorePort
	queue   ports.ActionQueuePort
	logger  *logging.Logger
	tracer  *tracing.Tracer

	// onQueuedOnline fires after a write is captured while the monitor
	// still reports online. Without it such actions would wait for the
	// next offline→online transition or a manual drain.
	onQueuedOnline func()
}

// New creates a new offline-aware executor.
func New(monitor ports.ConnectivityPort, cache ports.SnapshotStorePort, queue ports.ActionQueuePort, logger *logging.Logger, tracer *tracing.Tracer) *Executor {
	if logger == nil {
		logger = logging.Default()
	}
	if tracer == nil {
		tracer = tracing.Default()
	}
	return &Executor{
		monitor: monitor,
		cache:   cache,
		queue:   queue,
		logger:  logger,
		tracer:  tracer,
	}
}

// OnQueuedOnline registers fn to run whenever a write is captured while
// connectivity still reports online. Wire it during startup; it is not
// safe to call concurrently with Execute.
func (e *Executor) OnQueuedOnline(fn func()) {
	e.onQueuedOnline = fn
}

// Execute runs one operation. It never returns a raw transport error: every
// outcome is a tagged Result the caller can switch on.
func (e *Executor) Execute(ctx context.Context, req Request) Result {
	ctx, span := e.tracer.StartExecuteSpan(ctx, string(req.ActionType), req.CacheKey)

	result := e.execute(ctx, span, req)

	span.SetFromCache(result.FromCache)
	span.SetQueued(result.Queued, result.ActionID)
	if result.Err != nil && !errors.Is(result.Err, errors.ErrQueuedForSync) {
		span.EndWithError(result.Err)
	} else {
		span.End()
	}

	return result
}

func (e *Executor) execute(ctx context.Context, span *tracing.ExecuteSpan, req Request) Result {
	if err := validate(req); err != nil {
		return Result{Err: err}
	}

	online := e.monitor.IsOnline()
	span.SetOnline(online)

	if req.Write {
		return e.executeWrite(ctx, req, online)
	}
	return e.executeRead(ctx, req, online)
}

// validate rejects requests that cannot take any path.
func validate(req Request) error {
	if req.Write && req.ActionType == "" {
		return errors.NewError(errors.CodeValidation, "write requires an action type", errors.ErrTypeRequired)
	}
	if !req.Write && req.Remote == nil {
		return errors.NewError(errors.CodeValidation, "read requires a remote call", nil)
	}
	return nil
}

// executeRead serves a read from the remote when possible, from the cache
// when not.
func (e *Executor) executeRead(ctx context.Context, req Request, online bool) Result {
	if !online {
		return e.readFromCache(ctx, req)
	}

	env := req.Remote(ctx)
	if env.Err == nil {
		if req.CacheKey != "" {
			e.cache.Put(ctx, req.CacheKey, env.Data)
		}
		return Result{Data: env.Data}
	}

	// The remote failed while we believed we were online: a stale answer
	// beats no answer, so fall back before surfacing the failure.
	if fallback := e.readFromCacheQuiet(ctx, req.CacheKey); fallback != nil {
		return Result{Data: fallback.Data, FromCache: true}
	}

	return Result{Err: errors.NewError(errors.CodeRemote, "remote call failed", env.Err).
		WithContext("cache_key", req.CacheKey)}
}

// readFromCache serves an offline read, or reports why it cannot.
func (e *Executor) readFromCache(ctx context.Context, req Request) Result {
	if snap := e.readFromCacheQuiet(ctx, req.CacheKey); snap != nil {
		return Result{Data: snap.Data, FromCache: true}
	}

	logging.LogCacheMiss(ctx, e.logger, req.CacheKey)
	return Result{Err: errors.NewError(errors.CodeNetwork, "offline with no cached data", errors.ErrNoCachedData).
		WithContext("cache_key", req.CacheKey)}
}

// readFromCacheQuiet returns the snapshot for key, nil when absent or on
// any storage error. Cache reads are best-effort everywhere.
func (e *Executor) readFromCacheQuiet(ctx context.Context, key string) *snapshot.Snapshot {
	if key == "" {
		return nil
	}

	snap, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.WarnContext(ctx, "cache read failed", "cache_key", key, "error", err.Error())
		return nil
	}
	if snap == nil {
		return nil
	}

	logging.LogCacheHit(ctx, e.logger, key, snap.Age())
	return snap
}

// executeWrite sends a write through when online, and captures it as a
// pending action when offline or when the remote call fails.
func (e *Executor) executeWrite(ctx context.Context, req Request, online bool) Result {
	if online && req.Remote != nil {
		env := req.Remote(ctx)
		if env.Err == nil {
			// Writes that return a read-through snapshot refresh the cache.
			if req.CacheKey != "" && len(env.Data) > 0 {
				e.cache.Put(ctx, req.CacheKey, env.Data)
			}
			return Result{Data: env.Data}
		}

		e.logger.WarnContext(ctx, "online write failed, capturing for replay",
			"action_type", string(req.ActionType),
			"error", env.Err.Error(),
		)
	}

	return e.enqueueWrite(ctx, req, online)
}

// enqueueWrite durably captures the mutation intent and answers with the
// best local view available.
func (e *Executor) enqueueWrite(ctx context.Context, req Request, online bool) Result {
	id, err := e.queue.Enqueue(ctx, req.ActionType, req.Payload)
	if err != nil {
		return Result{Err: errors.NewError(errors.CodeStorage, "failed to capture write", err).
			WithContext("action_type", string(req.ActionType))}
	}

	depth, countErr := e.queue.Count(ctx)
	if countErr != nil {
		depth = -1
	}
	logging.LogActionEnqueued(ctx, e.logger, id, string(req.ActionType), depth)

	// An action queued while online will see no reconnect to trigger its
	// replay, so hand it to the registered drain kick.
	if online && e.onQueuedOnline != nil {
		e.onQueuedOnline()
	}

	if snap := e.readFromCacheQuiet(ctx, req.CacheKey); snap != nil {
		return Result{Data: snap.Data, FromCache: true, Queued: true, ActionID: id}
	}

	return Result{
		Queued:   true,
		ActionID: id,
		Err: errors.NewError(errors.CodeNetwork, "write queued for sync", errors.ErrQueuedForSync).
			WithContext("action_id", id),
	}
}
