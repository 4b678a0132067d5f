// Package drain implements queue draining: replaying captured pending
// actions against the remote service, in order, once connectivity returns.
package drain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/jbctechsolutions/syncbridge/internal/application/ports"
	"github.com/jbctechsolutions/syncbridge/internal/domain/action"
	"github.com/jbctechsolutions/syncbridge/internal/domain/errors"
	"github.com/jbctechsolutions/syncbridge/internal/domain/optimistic"
	"github.com/jbctechsolutions/syncbridge/internal/infrastructure/logging"
	"github.com/jbctechsolutions/syncbridge/internal/infrastructure/tracing"
)

// LeaseName is the shared lock name all drainer instances contend on.
const LeaseName = "drain"

// Config holds drainer configuration.
type Config struct {
	MaxRetries     int           // Total attempts before an action is dead-lettered
	InitialBackoff time.Duration // First retry delay within a drain
	MaxBackoff     time.Duration // Backoff ceiling
	AttemptTimeout time.Duration // Per-attempt deadline
	LeaseTTL       time.Duration // Drain lease lifetime without renewal
}

// DefaultConfig returns sensible default drainer configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     5,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		AttemptTimeout: 20 * time.Second,
		LeaseTTL:       60 * time.Second,
	}
}

// ActionOutcome reports the terminal fate of one replayed action.
type ActionOutcome struct {
	ActionID     string
	Type         action.Type
	Confirmed    bool            // Replay succeeded
	DeadLettered bool            // Abandoned to the dead-letter store
	Reason       string          // Why it was dead-lettered
	Data         json.RawMessage // Canonical server result on success
	Attempts     int             // Attempts spent in this drain
}

// OutcomeListener observes terminal action outcomes so domain stores can
// reconcile optimistic records exactly once.
type OutcomeListener func(ActionOutcome)

// Summary totals one drain cycle.
type Summary struct {
	DrainID      string
	Replayed     int
	DeadLettered int
	Remaining    int
	Outcomes     []ActionOutcome
}

// Drainer subscribes to connectivity transitions and replays the pending
// queue strictly in order: action n+1 never starts before action n either
// succeeded or was dead-lettered.
type Drainer struct {
	queue    ports.ActionQueuePort
	dead     ports.DeadLetterPort
	lease    ports.LeasePort
	registry ports.RemoteRegistryPort
	monitor  ports.ConnectivityPort
	config   Config
	logger   *logging.Logger
	tracer   *tracing.Tracer

	// owner identifies this process in the lease table.
	owner string

	mu          sync.Mutex
	listeners   map[int]OutcomeListener
	nextID      int
	draining    bool
	unsubscribe func()
}

// New creates a new drainer.
func New(queue ports.ActionQueuePort, dead ports.DeadLetterPort, lease ports.LeasePort, registry ports.RemoteRegistryPort, monitor ports.ConnectivityPort, cfg Config, logger *logging.Logger, tracer *tracing.Tracer) *Drainer {
	if logger == nil {
		logger = logging.Default()
	}
	if tracer == nil {
		tracer = tracing.Default()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultConfig().InitialBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultConfig().AttemptTimeout
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = DefaultConfig().LeaseTTL
	}

	return &Drainer{
		queue:     queue,
		dead:      dead,
		lease:     lease,
		registry:  registry,
		monitor:   monitor,
		config:    cfg,
		logger:    logger,
		tracer:    tracer,
		owner:     uuid.New().String(),
		listeners: make(map[int]OutcomeListener),
	}
}

// Owner returns this drainer's lease owner id.
func (d *Drainer) Owner() string {
	return d.owner
}

// OnOutcome registers a listener for terminal action outcomes and returns an
// unsubscribe function.
func (d *Drainer) OnOutcome(listener OutcomeListener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.listeners[id] = listener

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners, id)
	}
}

// Start subscribes to the connectivity monitor: each offline→online
// transition triggers a drain in the background.
func (d *Drainer) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.unsubscribe != nil {
		return
	}
	d.unsubscribe = d.monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		go func() {
			if _, err := d.Drain(ctx); err != nil && !errors.Is(err, errors.ErrLeaseHeld) {
				d.logger.WarnContext(ctx, "background drain failed", "error", err.Error())
			}
		}()
	})
}

// Stop unsubscribes from the monitor. A drain already running completes.
func (d *Drainer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.unsubscribe != nil {
		d.unsubscribe()
		d.unsubscribe = nil
	}
}

// Drain replays the pending queue. It returns ErrLeaseHeld when another
// process (or an overlapping call) is already draining. A drain interrupted
// by connectivity loss returns a summary with Remaining > 0 and no error.
func (d *Drainer) Drain(ctx context.Context) (*Summary, error) {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		return nil, errors.NewError(errors.CodeDrain, "drain already running", errors.ErrLeaseHeld)
	}
	d.draining = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.draining = false
		d.mu.Unlock()
	}()

	if err := d.lease.Acquire(ctx, LeaseName, d.owner, d.config.LeaseTTL); err != nil {
		return nil, err
	}
	defer func() {
		if err := d.lease.Release(context.WithoutCancel(ctx), LeaseName, d.owner); err != nil {
			d.logger.Warn("failed to release drain lease", "error", err.Error())
		}
	}()

	drainID := uuid.New().String()
	ctx = logging.WithDrainID(ctx, drainID)

	actions, err := d.queue.List(ctx)
	if err != nil {
		return nil, errors.NewError(errors.CodeStorage, "failed to list pending actions", err)
	}

	summary := &Summary{DrainID: drainID}
	if len(actions) == 0 {
		return summary, nil
	}

	ctx, span := d.tracer.StartDrainSpan(ctx, drainID, len(actions))
	logging.LogDrainStart(ctx, d.logger, drainID, len(actions))
	start := time.Now()

	var abortErr error
	for i, a := range actions {
		if ctx.Err() != nil {
			abortErr = ctx.Err()
			summary.Remaining = len(actions) - i
			break
		}
		if !d.monitor.IsOnline() {
			summary.Remaining = len(actions) - i
			break
		}

		if err := d.lease.Renew(ctx, LeaseName, d.owner, d.config.LeaseTTL); err != nil {
			// Lost the lease: someone else owns the queue now.
			abortErr = err
			summary.Remaining = len(actions) - i
			break
		}

		outcome := d.replay(ctx, a)
		summary.Outcomes = append(summary.Outcomes, outcome)
		if outcome.Confirmed {
			summary.Replayed++
		}
		if outcome.DeadLettered {
			summary.DeadLettered++
		}
		if !outcome.Confirmed && !outcome.DeadLettered {
			// Transient failure left in place: stop so FIFO order holds.
			summary.Remaining = len(actions) - i
			break
		}

		d.notify(outcome)
	}

	span.SetOutcome(summary.Replayed, summary.DeadLettered, summary.Remaining)

	if abortErr != nil {
		span.EndWithError(abortErr)
		logging.LogDrainAborted(ctx, d.logger, drainID, abortErr, summary.Remaining)
		return summary, nil
	}
	span.End()
	logging.LogDrainComplete(ctx, d.logger, drainID, summary.Replayed, summary.DeadLettered, time.Since(start))

	if summary.Remaining == 0 {
		if err := d.queue.SetLastSync(ctx, time.Now().UTC()); err != nil {
			d.logger.WarnContext(ctx, "failed to record last sync", "error", err.Error())
		}
	}

	return summary, nil
}

// replay drives one action to a terminal state: confirmed, dead-lettered,
// or left in place after a transient failure exhausted this drain's
// patience without exhausting the action's retry budget.
func (d *Drainer) replay(ctx context.Context, a *action.PendingAction) ActionOutcome {
	ctx = logging.WithActionID(ctx, a.ID)
	ctx, span := d.tracer.StartReplaySpan(ctx, a.ID, string(a.Type))

	outcome := ActionOutcome{ActionID: a.ID, Type: a.Type}

	handler, ok := d.registry.Handler(a.Type)
	if !ok {
		reason := fmt.Sprintf("no handler registered for type %q", a.Type)
		d.deadLetter(ctx, a, a.Retries, reason)
		outcome.DeadLettered = true
		outcome.Reason = reason
		span.EndWithError(errors.ErrUnknownActionType)
		return outcome
	}

	budget := d.config.MaxRetries - a.Retries
	if budget <= 0 {
		reason := errors.ErrReplayExhausted.Error()
		d.deadLetter(ctx, a, a.Retries, reason)
		outcome.DeadLettered = true
		outcome.Reason = reason
		span.EndWithError(errors.ErrReplayExhausted)
		return outcome
	}

	attempts := 0
	operation := func() (json.RawMessage, error) {
		attempts++
		logging.LogReplayAttempt(ctx, d.logger, a.ID, a.Retries+attempts)

		attemptCtx, cancel := context.WithTimeout(ctx, d.config.AttemptTimeout)
		defer cancel()

		data, err := handler(attemptCtx, a.Payload, a.ID)
		if err == nil {
			return data, nil
		}

		logging.LogReplayFailed(ctx, d.logger, a.ID, err, a.Retries+attempts)
		if retryErr := d.queue.IncrementRetry(ctx, a.ID); retryErr != nil {
			d.logger.WarnContext(ctx, "failed to persist retry count", "error", retryErr.Error())
		}

		if errors.IsPermanent(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = d.config.InitialBackoff
	expo.MaxInterval = d.config.MaxBackoff

	data, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(budget)),
	)
	outcome.Attempts = attempts
	span.SetAttempts(attempts)

	if err == nil {
		if removeErr := d.queue.Remove(ctx, a.ID); removeErr != nil {
			d.logger.WarnContext(ctx, "failed to remove replayed action", "error", removeErr.Error())
		}
		outcome.Confirmed = true
		outcome.Data = data
		span.End()
		return outcome
	}

	totalRetries := a.Retries + attempts
	switch {
	case errors.IsPermanent(err):
		reason := fmt.Sprintf("remote rejected action: %v", err)
		d.deadLetter(ctx, a, totalRetries, reason)
		outcome.DeadLettered = true
		outcome.Reason = reason

	case totalRetries >= d.config.MaxRetries:
		reason := errors.ErrReplayExhausted.Error()
		d.deadLetter(ctx, a, totalRetries, reason)
		outcome.DeadLettered = true
		outcome.Reason = reason
	}
	// Otherwise the action stays queued with its bumped retry count and the
	// drain stops here to preserve ordering.

	span.EndWithError(err)
	return outcome
}

// deadLetter moves an action to the dead-letter store and out of the queue.
func (d *Drainer) deadLetter(ctx context.Context, a *action.PendingAction, retries int, reason string) {
	a.Retries = retries
	dl := action.NewDeadLetter(a, reason)
	if err := d.dead.Add(ctx, dl); err != nil {
		d.logger.ErrorContext(ctx, "failed to record dead letter", "action_id", a.ID, "error", err.Error())
		return
	}
	if err := d.queue.Remove(ctx, a.ID); err != nil {
		d.logger.ErrorContext(ctx, "failed to remove dead-lettered action", "action_id", a.ID, "error", err.Error())
	}

	logging.LogDeadLettered(ctx, d.logger, a.ID, string(a.Type), reason)
}

// notify fans one outcome out to listeners.
func (d *Drainer) notify(outcome ActionOutcome) {
	d.mu.Lock()
	snapshot := make([]OutcomeListener, 0, len(d.listeners))
	for _, l := range d.listeners {
		snapshot = append(snapshot, l)
	}
	d.mu.Unlock()

	for _, listener := range snapshot {
		listener(outcome)
	}
}

// Reconcile builds an OutcomeListener that keeps an optimistic set in step
// with drain outcomes: a confirmed action replaces its pending record with
// the decoded server value, a dead-lettered one removes it. Register the
// result with OnOutcome.
func Reconcile[T any](set *optimistic.Set[T], decode func(json.RawMessage) (T, error)) OutcomeListener {
	return func(o ActionOutcome) {
		switch {
		case o.Confirmed:
			canonical, err := decode(o.Data)
			if err != nil {
				// Server data we cannot decode: drop the pending record
				// rather than show it as confirmed.
				set.Reject(o.ActionID)
				return
			}
			set.Confirm(o.ActionID, canonical)
		case o.DeadLettered:
			set.Reject(o.ActionID)
		}
	}
}

// Redrive moves a dead letter back to the tail of the queue with its retry
// count reset, for a fresh set of attempts on the next drain.
func (d *Drainer) Redrive(ctx context.Context, id string) (string, error) {
	dl, err := d.dead.Get(ctx, id)
	if err != nil {
		return "", err
	}

	newID, err := d.queue.Enqueue(ctx, dl.Type, dl.Payload)
	if err != nil {
		return "", errors.NewError(errors.CodeStorage, "failed to redrive dead letter", err)
	}

	if err := d.dead.Remove(ctx, id); err != nil {
		return "", errors.NewError(errors.CodeStorage, "failed to remove redriven dead letter", err)
	}

	d.logger.InfoContext(ctx, "dead letter redriven",
		"dead_letter_id", id,
		"action_id", newID,
		"action_type", string(dl.Type),
	)
	return newID, nil
}
