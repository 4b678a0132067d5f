package drain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jbctechsolutions/syncbridge/internal/application/ports"
	"github.com/jbctechsolutions/syncbridge/internal/domain/action"
	domainErrors "github.com/jbctechsolutions/syncbridge/internal/domain/errors"
	"github.com/jbctechsolutions/syncbridge/internal/domain/optimistic"
)

// fakeMonitor is a settable connectivity monitor.
type fakeMonitor struct {
	mu        sync.Mutex
	online    bool
	listeners []ports.ConnectivityListener
}

func (f *fakeMonitor) IsOnline() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online
}

func (f *fakeMonitor) Subscribe(listener ports.ConnectivityListener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, listener)
	return func() {}
}

func (f *fakeMonitor) SetOnline(online bool) {
	f.mu.Lock()
	f.online = online
	listeners := append([]ports.ConnectivityListener(nil), f.listeners...)
	f.mu.Unlock()
	for _, l := range listeners {
		l(online)
	}
}

// fakeQueue is an in-memory ActionQueuePort preserving insertion order.
type fakeQueue struct {
	mu       sync.Mutex
	actions  []*action.PendingAction
	lastSync time.Time
	listErr  error
}

func (f *fakeQueue) Enqueue(ctx context.Context, actionType action.Type, payload json.RawMessage) (string, error) {
	a, err := action.New(actionType, payload)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, a)
	return a.ID, nil
}

func (f *fakeQueue) List(ctx context.Context) ([]*action.PendingAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]*action.PendingAction(nil), f.actions...), nil
}

func (f *fakeQueue) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.actions {
		if a.ID == id {
			f.actions = append(f.actions[:i], f.actions[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeQueue) RemoveMany(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := f.Remove(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeQueue) IncrementRetry(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.actions {
		if a.ID == id {
			a.Retries++
			return nil
		}
	}
	return domainErrors.ErrActionNotFound
}

func (f *fakeQueue) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.actions), nil
}

func (f *fakeQueue) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = nil
	return nil
}

func (f *fakeQueue) LastSync(ctx context.Context) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSync, nil
}

func (f *fakeQueue) SetLastSync(ctx context.Context, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSync = t
	return nil
}

// fakeDeadStore is an in-memory DeadLetterPort.
type fakeDeadStore struct {
	mu      sync.Mutex
	letters []*action.DeadLetter
}

func (f *fakeDeadStore) Add(ctx context.Context, dl *action.DeadLetter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.letters = append(f.letters, dl)
	return nil
}

func (f *fakeDeadStore) List(ctx context.Context) ([]*action.DeadLetter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*action.DeadLetter(nil), f.letters...), nil
}

func (f *fakeDeadStore) Get(ctx context.Context, id string) (*action.DeadLetter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, dl := range f.letters {
		if dl.ID == id {
			return dl, nil
		}
	}
	return nil, domainErrors.ErrActionNotFound
}

func (f *fakeDeadStore) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, dl := range f.letters {
		if dl.ID == id {
			f.letters = append(f.letters[:i], f.letters[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeDeadStore) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.letters), nil
}

// fakeLease is an in-memory LeasePort.
type fakeLease struct {
	mu         sync.Mutex
	owner      string
	acquireErr error
	renewErr   error
	renews     int
}

func (f *fakeLease) Acquire(ctx context.Context, name, owner string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireErr != nil {
		return f.acquireErr
	}
	if f.owner != "" && f.owner != owner {
		return domainErrors.ErrLeaseHeld
	}
	f.owner = owner
	return nil
}

func (f *fakeLease) Renew(ctx context.Context, name, owner string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renewErr != nil {
		return f.renewErr
	}
	if f.owner != owner {
		return domainErrors.ErrLeaseHeld
	}
	f.renews++
	return nil
}

func (f *fakeLease) Release(ctx context.Context, name, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.owner == owner {
		f.owner = ""
	}
	return nil
}

func (f *fakeLease) Holder(ctx context.Context, name string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owner, f.owner != "", nil
}

// fakeRegistry maps action types to handlers.
type fakeRegistry struct {
	handlers map[action.Type]ports.ReplayHandler
}

func (f *fakeRegistry) Handler(actionType action.Type) (ports.ReplayHandler, bool) {
	h, ok := f.handlers[actionType]
	return h, ok
}

func (f *fakeRegistry) Types() []action.Type {
	types := make([]action.Type, 0, len(f.handlers))
	for t := range f.handlers {
		types = append(types, t)
	}
	return types
}

type fixture struct {
	drainer  *Drainer
	queue    *fakeQueue
	dead     *fakeDeadStore
	lease    *fakeLease
	registry *fakeRegistry
	monitor  *fakeMonitor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		queue:    &fakeQueue{},
		dead:     &fakeDeadStore{},
		lease:    &fakeLease{},
		registry: &fakeRegistry{handlers: make(map[action.Type]ports.ReplayHandler)},
		monitor:  &fakeMonitor{online: true},
	}
	cfg := Config{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		AttemptTimeout: time.Second,
		LeaseTTL:       time.Minute,
	}
	f.drainer = New(f.queue, f.dead, f.lease, f.registry, f.monitor, cfg, nil, nil)
	return f
}

func (f *fixture) handleOK(actionType action.Type) {
	f.registry.handlers[actionType] = func(ctx context.Context, payload json.RawMessage, dedupeKey string) (json.RawMessage, error) {
		return json.RawMessage(`{"ok":true}`), nil
	}
}

func TestDrainEmptyQueue(t *testing.T) {
	f := newFixture(t)

	summary, err := f.drainer.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if summary.Replayed != 0 || summary.DeadLettered != 0 || summary.Remaining != 0 {
		t.Errorf("summary = %+v, want all zero", summary)
	}
	if f.lease.owner != "" {
		t.Error("lease not released after drain")
	}
}

func TestDrainReplaysInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var replayed []string
	f.registry.handlers["createProject"] = func(ctx context.Context, payload json.RawMessage, dedupeKey string) (json.RawMessage, error) {
		var p struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		replayed = append(replayed, p.Name)
		return json.RawMessage(`{}`), nil
	}

	for i := 0; i < 5; i++ {
		payload := json.RawMessage(fmt.Sprintf(`{"name":"project-%d"}`, i))
		if _, err := f.queue.Enqueue(ctx, "createProject", payload); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	summary, err := f.drainer.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if summary.Replayed != 5 {
		t.Errorf("Replayed = %d, want 5", summary.Replayed)
	}
	if summary.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", summary.Remaining)
	}

	want := []string{"project-0", "project-1", "project-2", "project-3", "project-4"}
	if len(replayed) != len(want) {
		t.Fatalf("replayed %d actions, want %d", len(replayed), len(want))
	}
	for i, name := range want {
		if replayed[i] != name {
			t.Errorf("replayed[%d] = %q, want %q", i, replayed[i], name)
		}
	}

	if n, _ := f.queue.Count(ctx); n != 0 {
		t.Errorf("queue count after drain = %d, want 0", n)
	}
	if last, _ := f.queue.LastSync(ctx); last.IsZero() {
		t.Error("LastSync not recorded after full drain")
	}
}

func TestDrainUsesActionIDAsDedupeKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var gotKey string
	f.registry.handlers["updateTask"] = func(ctx context.Context, payload json.RawMessage, dedupeKey string) (json.RawMessage, error) {
		gotKey = dedupeKey
		return nil, nil
	}

	id, err := f.queue.Enqueue(ctx, "updateTask", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	if _, err := f.drainer.Drain(ctx); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if gotKey != id {
		t.Errorf("dedupe key = %q, want action id %q", gotKey, id)
	}
}

func TestDrainDeadLettersUnknownType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.handleOK("known")

	if _, err := f.queue.Enqueue(ctx, "unknown", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if _, err := f.queue.Enqueue(ctx, "known", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	summary, err := f.drainer.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if summary.DeadLettered != 1 {
		t.Errorf("DeadLettered = %d, want 1", summary.DeadLettered)
	}
	if summary.Replayed != 1 {
		t.Errorf("Replayed = %d, want 1", summary.Replayed)
	}

	letters, _ := f.dead.List(ctx)
	if len(letters) != 1 {
		t.Fatalf("dead letters = %d, want 1", len(letters))
	}
	if letters[0].Type != "unknown" {
		t.Errorf("dead letter type = %q, want %q", letters[0].Type, "unknown")
	}
	if n, _ := f.queue.Count(ctx); n != 0 {
		t.Errorf("queue count = %d, want 0", n)
	}
}

func TestDrainRetriesTransientThenSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	calls := 0
	f.registry.handlers["flaky"] = func(ctx context.Context, payload json.RawMessage, dedupeKey string) (json.RawMessage, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset")
		}
		return json.RawMessage(`{"id":"42"}`), nil
	}

	if _, err := f.queue.Enqueue(ctx, "flaky", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	summary, err := f.drainer.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("handler calls = %d, want 3", calls)
	}
	if summary.Replayed != 1 {
		t.Errorf("Replayed = %d, want 1", summary.Replayed)
	}
	if len(summary.Outcomes) != 1 || summary.Outcomes[0].Attempts != 3 {
		t.Errorf("outcome attempts = %+v, want 3", summary.Outcomes)
	}
	if string(summary.Outcomes[0].Data) != `{"id":"42"}` {
		t.Errorf("outcome data = %s", summary.Outcomes[0].Data)
	}
}

func TestDrainExhaustsRetriesAndDeadLetters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	calls := 0
	f.registry.handlers["broken"] = func(ctx context.Context, payload json.RawMessage, dedupeKey string) (json.RawMessage, error) {
		calls++
		return nil, errors.New("connection reset")
	}

	if _, err := f.queue.Enqueue(ctx, "broken", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	summary, err := f.drainer.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("handler calls = %d, want MaxRetries (3)", calls)
	}
	if summary.DeadLettered != 1 {
		t.Errorf("DeadLettered = %d, want 1", summary.DeadLettered)
	}

	letters, _ := f.dead.List(ctx)
	if len(letters) != 1 {
		t.Fatalf("dead letters = %d, want 1", len(letters))
	}
	if letters[0].Retries != 3 {
		t.Errorf("dead letter retries = %d, want 3", letters[0].Retries)
	}
	if letters[0].Reason != domainErrors.ErrReplayExhausted.Error() {
		t.Errorf("dead letter reason = %q", letters[0].Reason)
	}
	if n, _ := f.queue.Count(ctx); n != 0 {
		t.Errorf("queue count = %d, want 0", n)
	}
}

func TestDrainDeadLettersPermanentWithoutRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	calls := 0
	f.registry.handlers["rejected"] = func(ctx context.Context, payload json.RawMessage, dedupeKey string) (json.RawMessage, error) {
		calls++
		return nil, domainErrors.Permanent(errors.New("validation failed"))
	}

	if _, err := f.queue.Enqueue(ctx, "rejected", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	summary, err := f.drainer.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("handler calls = %d, want 1 (no retry on permanent error)", calls)
	}
	if summary.DeadLettered != 1 {
		t.Errorf("DeadLettered = %d, want 1", summary.DeadLettered)
	}

	letters, _ := f.dead.List(ctx)
	if len(letters) != 1 {
		t.Fatalf("dead letters = %d, want 1", len(letters))
	}
	if letters[0].Reason == "" {
		t.Error("dead letter reason empty")
	}
}

func TestDrainContinuesAfterDeadLetter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.handleOK("good")
	f.registry.handlers["bad"] = func(ctx context.Context, payload json.RawMessage, dedupeKey string) (json.RawMessage, error) {
		return nil, domainErrors.Permanent(errors.New("gone"))
	}

	if _, err := f.queue.Enqueue(ctx, "bad", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if _, err := f.queue.Enqueue(ctx, "good", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	summary, err := f.drainer.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if summary.DeadLettered != 1 || summary.Replayed != 1 {
		t.Errorf("summary = %+v, want 1 dead-lettered then 1 replayed", summary)
	}
	if last, _ := f.queue.LastSync(ctx); last.IsZero() {
		t.Error("LastSync should be recorded: every action reached a terminal state")
	}
}

func TestDrainLeaseHeldByOther(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.lease.owner = "some-other-process"

	if _, err := f.queue.Enqueue(ctx, "x", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	_, err := f.drainer.Drain(ctx)
	if !errors.Is(err, domainErrors.ErrLeaseHeld) {
		t.Fatalf("Drain() error = %v, want ErrLeaseHeld", err)
	}
	if n, _ := f.queue.Count(ctx); n != 1 {
		t.Errorf("queue count = %d, want untouched 1", n)
	}
}

func TestDrainAbortsWhenOfflineMidway(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.registry.handlers["step"] = func(ctx context.Context, payload json.RawMessage, dedupeKey string) (json.RawMessage, error) {
		// First replay succeeds, then the link drops before the next one.
		f.monitor.online = false
		return nil, nil
	}

	for i := 0; i < 3; i++ {
		if _, err := f.queue.Enqueue(ctx, "step", json.RawMessage(`{}`)); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	summary, err := f.drainer.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if summary.Replayed != 1 {
		t.Errorf("Replayed = %d, want 1", summary.Replayed)
	}
	if summary.Remaining != 2 {
		t.Errorf("Remaining = %d, want 2", summary.Remaining)
	}
	if n, _ := f.queue.Count(ctx); n != 2 {
		t.Errorf("queue count = %d, want 2 left for next drain", n)
	}
	if last, _ := f.queue.LastSync(ctx); !last.IsZero() {
		t.Error("LastSync must not be set after a partial drain")
	}
}

func TestDrainAbortsWhenLeaseLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.handleOK("x")
	f.lease.renewErr = domainErrors.ErrLeaseHeld

	if _, err := f.queue.Enqueue(ctx, "x", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	summary, err := f.drainer.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if summary.Replayed != 0 {
		t.Errorf("Replayed = %d, want 0", summary.Replayed)
	}
	if summary.Remaining != 1 {
		t.Errorf("Remaining = %d, want 1", summary.Remaining)
	}
}

func TestDrainRejectsOverlappingCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	f.registry.handlers["slow"] = func(ctx context.Context, payload json.RawMessage, dedupeKey string) (json.RawMessage, error) {
		close(started)
		<-release
		return nil, nil
	}

	if _, err := f.queue.Enqueue(ctx, "slow", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.drainer.Drain(ctx)
		done <- err
	}()
	<-started

	_, err := f.drainer.Drain(ctx)
	if !errors.Is(err, domainErrors.ErrLeaseHeld) {
		t.Errorf("overlapping Drain() error = %v, want ErrLeaseHeld", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Drain() error = %v", err)
	}
}

func TestDrainNotifiesOutcomeListeners(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.handleOK("ok")
	f.registry.handlers["nope"] = func(ctx context.Context, payload json.RawMessage, dedupeKey string) (json.RawMessage, error) {
		return nil, domainErrors.Permanent(errors.New("rejected"))
	}

	okID, _ := f.queue.Enqueue(ctx, "ok", json.RawMessage(`{}`))
	badID, _ := f.queue.Enqueue(ctx, "nope", json.RawMessage(`{}`))

	var outcomes []ActionOutcome
	unsubscribe := f.drainer.OnOutcome(func(o ActionOutcome) {
		outcomes = append(outcomes, o)
	})
	defer unsubscribe()

	if _, err := f.drainer.Drain(ctx); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}

	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(outcomes))
	}
	if outcomes[0].ActionID != okID || !outcomes[0].Confirmed {
		t.Errorf("outcomes[0] = %+v, want confirmed %s", outcomes[0], okID)
	}
	if outcomes[1].ActionID != badID || !outcomes[1].DeadLettered {
		t.Errorf("outcomes[1] = %+v, want dead-lettered %s", outcomes[1], badID)
	}
}

func TestOnOutcomeUnsubscribe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.handleOK("x")

	calls := 0
	unsubscribe := f.drainer.OnOutcome(func(ActionOutcome) { calls++ })
	unsubscribe()

	if _, err := f.queue.Enqueue(ctx, "x", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if _, err := f.drainer.Drain(ctx); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if calls != 0 {
		t.Errorf("unsubscribed listener called %d times", calls)
	}
}

func TestStartDrainsOnReconnect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.handleOK("x")
	f.monitor.online = false

	if _, err := f.queue.Enqueue(ctx, "x", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	f.drainer.Start(ctx)
	defer f.drainer.Stop()

	f.monitor.SetOnline(true)

	deadline := time.After(2 * time.Second)
	for {
		if n, _ := f.queue.Count(ctx); n == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("queue not drained after reconnect")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRedrive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dl := &action.DeadLetter{
		ID:       "dead-1",
		Type:     "createProject",
		Payload:  json.RawMessage(`{"name":"Launch"}`),
		Retries:  3,
		Reason:   "replay attempts exhausted",
		FailedAt: time.Now().UTC(),
	}
	if err := f.dead.Add(ctx, dl); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	newID, err := f.drainer.Redrive(ctx, "dead-1")
	if err != nil {
		t.Fatalf("Redrive() error = %v", err)
	}
	if newID == "" || newID == "dead-1" {
		t.Errorf("Redrive() id = %q, want a fresh action id", newID)
	}

	actions, _ := f.queue.List(ctx)
	if len(actions) != 1 {
		t.Fatalf("queue length = %d, want 1", len(actions))
	}
	if actions[0].Type != "createProject" {
		t.Errorf("redriven type = %q", actions[0].Type)
	}
	if actions[0].Retries != 0 {
		t.Errorf("redriven retries = %d, want reset to 0", actions[0].Retries)
	}
	if string(actions[0].Payload) != `{"name":"Launch"}` {
		t.Errorf("redriven payload = %s", actions[0].Payload)
	}

	if _, err := f.dead.Get(ctx, "dead-1"); !errors.Is(err, domainErrors.ErrActionNotFound) {
		t.Errorf("Get() after redrive error = %v, want ErrActionNotFound", err)
	}
}

func TestReconcileKeepsOptimisticSetInStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	type project struct {
		Name string `json:"name"`
	}

	f.registry.handlers["createProject"] = func(ctx context.Context, payload json.RawMessage, dedupeKey string) (json.RawMessage, error) {
		// Server canonicalizes the name.
		return json.RawMessage(`{"name":"Launch (confirmed)"}`), nil
	}
	f.registry.handlers["createTask"] = func(ctx context.Context, payload json.RawMessage, dedupeKey string) (json.RawMessage, error) {
		return nil, domainErrors.Permanent(errors.New("validation failed"))
	}

	set := optimistic.NewSet[project]()
	set.SetConfirmed([]project{{Name: "Existing"}})

	okID, _ := f.queue.Enqueue(ctx, "createProject", json.RawMessage(`{"name":"Launch"}`))
	set.Add(optimistic.NewRecord(project{Name: "Launch"}, okID))

	badID, _ := f.queue.Enqueue(ctx, "createTask", json.RawMessage(`{}`))
	set.Add(optimistic.NewRecord(project{Name: "Doomed"}, badID))

	unsubscribe := f.drainer.OnOutcome(Reconcile(set, func(data json.RawMessage) (project, error) {
		var p project
		err := json.Unmarshal(data, &p)
		return p, err
	}))
	defer unsubscribe()

	if _, err := f.drainer.Drain(ctx); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}

	if n := set.PendingCount(); n != 0 {
		t.Errorf("PendingCount() = %d, want 0 after drain", n)
	}

	var names []string
	for _, it := range set.Values() {
		names = append(names, it.Value.Name)
	}
	want := map[string]bool{"Existing": true, "Launch (confirmed)": true}
	if len(names) != 2 {
		t.Fatalf("Values() = %v, want 2 items", names)
	}
	for _, name := range names {
		if !want[name] {
			t.Errorf("unexpected item %q in reconciled set", name)
		}
	}
}

func TestRedriveMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.drainer.Redrive(context.Background(), "no-such-id")
	if !errors.Is(err, domainErrors.ErrActionNotFound) {
		t.Errorf("Redrive() error = %v, want ErrActionNotFound", err)
	}
}
