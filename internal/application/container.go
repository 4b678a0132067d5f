// Package application provides application-level services and dependency injection.
package application

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/jbctechsolutions/syncbridge/internal/adapters/remote"
	"github.com/jbctechsolutions/syncbridge/internal/adapters/remote/httpapi"
	"github.com/jbctechsolutions/syncbridge/internal/adapters/store/sqlite"
	"github.com/jbctechsolutions/syncbridge/internal/application/drain"
	"github.com/jbctechsolutions/syncbridge/internal/application/executor"
	"github.com/jbctechsolutions/syncbridge/internal/application/ports"
	domainErrors "github.com/jbctechsolutions/syncbridge/internal/domain/errors"
	"github.com/jbctechsolutions/syncbridge/internal/infrastructure/config"
	"github.com/jbctechsolutions/syncbridge/internal/infrastructure/connectivity"
	"github.com/jbctechsolutions/syncbridge/internal/infrastructure/logging"
	"github.com/jbctechsolutions/syncbridge/internal/infrastructure/storage"
	"github.com/jbctechsolutions/syncbridge/internal/infrastructure/tracing"
)

// OverrideFileName is the file next to the database whose presence forces
// the monitor offline.
const OverrideFileName = "offline"

// Container holds all application dependencies and provides a central
// point for dependency injection. It manages the lifecycle of services
// and ensures proper initialization order.
type Container struct {
	// Configuration
	config  *config.Config
	verbose bool // Override log level to debug when true

	// Database connection
	dbConn *sqlite.Connection
	db     *sql.DB

	// Repositories
	queueRepo    ports.ActionQueuePort
	snapshotRepo ports.SnapshotStorePort
	deadRepo     ports.DeadLetterPort
	leaseRepo    ports.LeasePort

	// Connectivity
	monitor *connectivity.Monitor

	// Remote service
	remoteClient *httpapi.Client
	registry     *remote.Registry

	// Application services
	executor *executor.Executor
	drainer  *drain.Drainer

	// Observability
	logger *logging.Logger
	tracer *tracing.Tracer
}

// NewContainer creates a new dependency injection container with all services
// initialized based on the provided configuration.
func NewContainer(cfg *config.Config, verbose bool) (*Container, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	c := &Container{
		config:  cfg,
		verbose: verbose,
	}

	// Initialize observability first so everything below can log
	if err := c.initObservability(); err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	// Initialize database connection
	if err := c.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize repositories
	c.initRepositories()

	// Initialize connectivity monitor
	c.initConnectivity()

	// Initialize the remote client and handler registry
	c.initRemote()

	// Initialize application services
	c.initServices()

	return c, nil
}

// initObservability initializes the logging and tracing subsystems.
func (c *Container) initObservability() error {
	logLevel := logging.LevelInfo
	if c.verbose {
		logLevel = logging.LevelDebug
	} else {
		switch c.config.Logging.Level {
		case "debug":
			logLevel = logging.LevelDebug
		case "info":
			logLevel = logging.LevelInfo
		case "warn":
			logLevel = logging.LevelWarn
		case "error":
			logLevel = logging.LevelError
		}
	}

	logFormat := logging.FormatText
	if c.config.Logging.Format == "json" {
		logFormat = logging.FormatJSON
	}

	c.logger = logging.New(logging.Config{
		Level:  logLevel,
		Format: logFormat,
	})

	if c.config.Observability.Tracing.Enabled {
		tracer, err := tracing.New(context.Background(), tracing.Config{
			Enabled:      true,
			ExporterType: tracing.ExporterType(c.config.Observability.Tracing.ExporterType),
			OTLPEndpoint: c.config.Observability.Tracing.OTLPEndpoint,
			ServiceName:  c.config.Observability.Tracing.ServiceName,
			Environment:  "production",
			SampleRate:   c.config.Observability.Tracing.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("failed to create tracer: %w", err)
		}
		c.tracer = tracer
	} else {
		c.tracer = tracing.Default()
	}

	return nil
}

// initDatabase initializes the SQLite database connection.
func (c *Container) initDatabase() error {
	conn, err := sqlite.NewConnection(c.config.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	if err := conn.Open(); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db, err := conn.DB()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to get database handle: %w", err)
	}

	c.dbConn = conn
	c.db = db
	return nil
}

// initRepositories initializes all storage repositories.
func (c *Container) initRepositories() {
	c.queueRepo = storage.NewActionQueueRepository(c.db)
	c.snapshotRepo = storage.NewSnapshotRepository(c.db, c.logger)
	c.deadRepo = storage.NewDeadLetterRepository(c.db)
	c.leaseRepo = storage.NewLeaseRepository(c.db)
}

// initConnectivity initializes the connectivity monitor. The offline
// override file lives next to the database so one directory holds all of
// the runtime's local state.
func (c *Container) initConnectivity() {
	c.monitor = connectivity.NewMonitor(connectivity.Config{
		ProbeURL:     c.config.Connectivity.ProbeURL,
		Interval:     c.config.Connectivity.Interval,
		Timeout:      c.config.Connectivity.Timeout,
		OverridePath: filepath.Join(filepath.Dir(c.dbConn.Path()), OverrideFileName),
	}, c.logger)
}

// initRemote initializes the remote HTTP client and the replay handler
// registry. Handlers are registered by the embedding application; the
// container only provides the wiring.
func (c *Container) initRemote() {
	c.registry = remote.NewRegistry()

	if c.config.Remote.BaseURL != "" {
		c.remoteClient = httpapi.NewClient(httpapi.Config{
			BaseURL: c.config.Remote.BaseURL,
			Timeout: c.config.Remote.Timeout,
		}, c.logger)
	}
}

// initServices initializes application services.
func (c *Container) initServices() {
	c.executor = executor.New(c.monitor, c.snapshotRepo, c.queueRepo, c.logger, c.tracer)

	c.drainer = drain.New(c.queueRepo, c.deadRepo, c.leaseRepo, c.registry, c.monitor, drain.Config{
		MaxRetries:     c.config.Drain.MaxRetries,
		InitialBackoff: c.config.Drain.InitialBackoff,
		MaxBackoff:     c.config.Drain.MaxBackoff,
		AttemptTimeout: c.config.Drain.AttemptTimeout,
		LeaseTTL:       c.config.Lease.TTL,
	}, c.logger, c.tracer)

	// Writes captured while still online see no reconnect, so kick a
	// background drain for them directly.
	c.executor.OnQueuedOnline(func() {
		go func() {
			ctx := context.Background()
			if _, err := c.drainer.Drain(ctx); err != nil && !domainErrors.Is(err, domainErrors.ErrLeaseHeld) {
				c.logger.WarnContext(ctx, "background drain failed", "error", err.Error())
			}
		}()
	})
}

// Start begins connectivity probing and arms the drainer so reconnects
// trigger background drains. Call after registering replay handlers.
func (c *Container) Start(ctx context.Context) error {
	if err := c.monitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start connectivity monitor: %w", err)
	}
	c.drainer.Start(ctx)
	return nil
}

// Close releases all resources held by the container.
func (c *Container) Close() error {
	ctx := context.Background()

	if c.drainer != nil {
		c.drainer.Stop()
	}

	if c.monitor != nil {
		_ = c.monitor.Close()
	}

	if c.tracer != nil {
		_ = c.tracer.Shutdown(ctx)
	}

	if c.dbConn != nil {
		return c.dbConn.Close()
	}
	return nil
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// DB returns the database connection.
func (c *Container) DB() *sql.DB {
	return c.db
}

// Logger returns the application logger.
func (c *Container) Logger() *logging.Logger {
	return c.logger
}

// Tracer returns the application tracer.
func (c *Container) Tracer() *tracing.Tracer {
	return c.tracer
}

// Monitor returns the connectivity monitor.
func (c *Container) Monitor() *connectivity.Monitor {
	return c.monitor
}

// Queue returns the pending action queue.
func (c *Container) Queue() ports.ActionQueuePort {
	return c.queueRepo
}

// Snapshots returns the snapshot cache.
func (c *Container) Snapshots() ports.SnapshotStorePort {
	return c.snapshotRepo
}

// DeadLetters returns the dead-letter store.
func (c *Container) DeadLetters() ports.DeadLetterPort {
	return c.deadRepo
}

// Lease returns the drain lease store.
func (c *Container) Lease() ports.LeasePort {
	return c.leaseRepo
}

// Registry returns the replay handler registry.
func (c *Container) Registry() *remote.Registry {
	return c.registry
}

// RemoteClient returns the remote HTTP client, or nil when no remote base
// URL is configured.
func (c *Container) RemoteClient() *httpapi.Client {
	return c.remoteClient
}

// Executor returns the offline-aware executor.
func (c *Container) Executor() *executor.Executor {
	return c.executor
}

// Drainer returns the queue drainer.
func (c *Container) Drainer() *drain.Drainer {
	return c.drainer
}
