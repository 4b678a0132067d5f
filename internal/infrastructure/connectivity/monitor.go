// Package connectivity implements the runtime's network state monitor.
// Connectivity is derived from a periodic HTTP probe combined with a manual
// override file whose presence forces offline (airplane mode). The override
// file is watched with fsnotify so toggles propagate without waiting for the
// next probe tick.
package connectivity

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jbctechsolutions/syncbridge/internal/application/ports"
	"github.com/jbctechsolutions/syncbridge/internal/infrastructure/logging"
)

// Compile-time check that Monitor implements ConnectivityPort.
var _ ports.ConnectivityPort = (*Monitor)(nil)

// Config holds monitor configuration.
type Config struct {
	ProbeURL     string        // Endpoint probed with HEAD requests; empty disables probing
	Interval     time.Duration // Probe period
	Timeout      time.Duration // Per-probe timeout
	OverridePath string        // File whose presence forces offline; empty disables the override
}

// DefaultConfig returns sensible default monitor configuration.
func DefaultConfig() Config {
	return Config{
		Interval: 15 * time.Second,
		Timeout:  3 * time.Second,
	}
}

// Monitor tracks online/offline state and notifies subscribers exactly once
// per genuine transition.
type Monitor struct {
	config Config
	client *http.Client
	logger *logging.Logger

	// State guarded by mu. The effective state is probeOnline && !override;
	// listeners only fire when the effective state actually changes.
	mu          sync.Mutex
	online      bool
	probeOnline bool
	override    bool
	listeners   map[int]ports.ConnectivityListener
	nextID      int

	// Lifecycle
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

// NewMonitor creates a new connectivity monitor. The monitor starts in the
// online state; call Start to begin probing.
func NewMonitor(cfg Config, logger *logging.Logger) *Monitor {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}

	return &Monitor{
		config:      cfg,
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
		online:      true,
		probeOnline: true,
		listeners:   make(map[int]ports.ConnectivityListener),
	}
}

// Start begins the probe loop and the override file watch. It returns
// immediately; probing runs until Close or context cancellation.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	if m.config.OverridePath != "" {
		if err := m.watchOverride(ctx); err != nil {
			cancel()
			return err
		}
		m.refreshOverride(ctx)
	}

	if m.config.ProbeURL != "" {
		// The first probe runs synchronously: the monitor starts in the
		// optimistic online state, and callers right after Start should
		// not act on it before a real answer exists.
		m.probe(ctx)
		m.wg.Add(1)
		go m.probeLoop(ctx)
	}

	return nil
}

// Close stops probing and the override watch.
func (m *Monitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}

	var err error
	if m.watcher != nil {
		err = m.watcher.Close()
	}
	m.wg.Wait()

	return err
}

// IsOnline returns the current effective connectivity state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers a listener and returns an unsubscribe function.
func (m *Monitor) Subscribe(listener ports.ConnectivityListener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = listener

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// SetOnline forces the probed state. The override file still wins: with the
// override present the effective state stays offline. Redundant calls are
// deduplicated like any other signal.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	m.probeOnline = online
	m.recomputeLocked(context.Background(), "manual")
}

// ProbeNow performs one synchronous probe and returns the resulting
// effective state. Useful for one-shot commands that cannot wait for the
// probe loop. With no probe URL configured it just returns the current state.
func (m *Monitor) ProbeNow(ctx context.Context) bool {
	if m.config.OverridePath != "" {
		m.refreshOverride(ctx)
	}
	if m.config.ProbeURL != "" {
		m.probe(ctx)
	}
	return m.IsOnline()
}

// probeLoop probes the configured endpoint at the configured interval. The
// first probe fires immediately so startup does not wait a full tick.
func (m *Monitor) probeLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

// probe makes one HEAD request and feeds the result through the dedup path.
func (m *Monitor) probe(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, m.config.ProbeURL, nil)
	if err != nil {
		m.logger.WarnContext(ctx, "probe request invalid", "error", err.Error())
		return
	}

	online := false
	resp, err := m.client.Do(req)
	if err == nil {
		resp.Body.Close()
		online = resp.StatusCode < http.StatusInternalServerError
	}

	m.mu.Lock()
	m.probeOnline = online
	m.recomputeLocked(ctx, "probe")
}

// watchOverride starts an fsnotify watch on the override file's directory.
// Watching the directory rather than the file itself catches create and
// remove events for a file that may not exist yet.
func (m *Monitor) watchOverride(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(m.config.OverridePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	m.watcher = watcher

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != m.config.OverridePath {
					continue
				}
				m.refreshOverride(ctx)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				m.logger.WarnContext(ctx, "override watch error", "error", err.Error())
			}
		}
	}()

	return nil
}

// refreshOverride re-stats the override file and feeds the result through
// the dedup path.
func (m *Monitor) refreshOverride(ctx context.Context) {
	_, err := os.Stat(m.config.OverridePath)
	exists := err == nil

	m.mu.Lock()
	m.override = exists
	m.recomputeLocked(ctx, "override")
}

// recomputeLocked derives the effective state and, on a genuine transition,
// notifies listeners outside the lock. The caller must hold mu; it is
// released before listeners run.
func (m *Monitor) recomputeLocked(ctx context.Context, source string) {
	effective := m.probeOnline && !m.override
	if effective == m.online {
		m.mu.Unlock()
		return
	}
	m.online = effective

	snapshot := make([]ports.ConnectivityListener, 0, len(m.listeners))
	for _, l := range m.listeners {
		snapshot = append(snapshot, l)
	}
	m.mu.Unlock()

	logging.LogConnectivityChange(ctx, m.logger, effective, source)

	for _, listener := range snapshot {
		listener(effective)
	}
}
