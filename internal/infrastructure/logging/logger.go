// Package logging provides structured logging infrastructure for syncbridge.
// It wraps Go's standard log/slog package with context-aware logging,
// correlation IDs, and domain-specific log attributes.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// contextKey is used for storing logger-related values in context.
type contextKey string

const (
	// CorrelationIDKey is the context key for correlation IDs.
	CorrelationIDKey contextKey = "correlation_id"
	// ActionIDKey is the context key for pending-action IDs.
	ActionIDKey contextKey = "action_id"
	// ActionTypeKey is the context key for action types.
	ActionTypeKey contextKey = "action_type"
	// DrainIDKey is the context key for drain cycle IDs.
	DrainIDKey contextKey = "drain_id"
	// ResourceKeyKey is the context key for snapshot resource keys.
	ResourceKeyKey contextKey = "resource_key"
)

// Level represents log levels.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format represents log output formats.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	Format     Format
	Output     io.Writer
	AddSource  bool
	TimeFormat string
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Format:     FormatText,
		Output:     os.Stderr,
		AddSource:  false,
		TimeFormat: time.RFC3339,
	}
}

// Logger wraps slog.Logger with additional functionality for syncbridge.
type Logger struct {
	slogger *slog.Logger
	level   slog.Level
	mu      sync.RWMutex
}

// global is the package-level default logger.
var (
	global     *Logger
	globalOnce sync.Once
)

// Init initializes the global logger with the provided configuration.
func Init(cfg Config) *Logger {
	globalOnce.Do(func() {
		global = New(cfg)
	})
	return global
}

// Default returns the global logger, initializing it with defaults if necessary.
func Default() *Logger {
	if global == nil {
		Init(DefaultConfig())
	}
	return global
}

// New creates a new Logger with the provided configuration.
func New(cfg Config) *Logger {
	level := parseLevel(cfg.Level)

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize time format
			if a.Key == slog.TimeKey && cfg.TimeFormat != "" {
				if t, ok := a.Value.Any().(time.Time); ok {
					return slog.String(slog.TimeKey, t.Format(cfg.TimeFormat))
				}
			}
			return a
		},
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{
		slogger: slog.New(handler),
		level:   level,
	}
}

// parseLevel converts a Level to slog.Level.
func parseLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel dynamically changes the log level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = parseLevel(level)
}

// With returns a new Logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slogger: l.slogger.With(args...),
		level:   l.level,
	}
}

// WithGroup returns a new Logger with the given group name.
func (l *Logger) WithGroup(name string) *Logger {
	return &Logger{
		slogger: l.slogger.WithGroup(name),
		level:   l.level,
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// DebugContext logs at debug level with context.
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slogger.DebugContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// InfoContext logs at info level with context.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slogger.InfoContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// WarnContext logs at warn level with context.
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slogger.WarnContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// ErrorContext logs at error level with context.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slogger.ErrorContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// enrichArgs extracts context values and adds them as log attributes.
func (l *Logger) enrichArgs(ctx context.Context, args []any) []any {
	enriched := make([]any, 0, len(args)+10)

	// Extract standard context values
	if v := ctx.Value(CorrelationIDKey); v != nil {
		enriched = append(enriched, "correlation_id", v)
	}
	if v := ctx.Value(ActionIDKey); v != nil {
		enriched = append(enriched, "action_id", v)
	}
	if v := ctx.Value(ActionTypeKey); v != nil {
		enriched = append(enriched, "action_type", v)
	}
	if v := ctx.Value(DrainIDKey); v != nil {
		enriched = append(enriched, "drain_id", v)
	}
	if v := ctx.Value(ResourceKeyKey); v != nil {
		enriched = append(enriched, "resource_key", v)
	}

	enriched = append(enriched, args...)
	return enriched
}

// Underlying returns the underlying slog.Logger.
func (l *Logger) Underlying() *slog.Logger {
	return l.slogger
}

// --- Context helpers ---

// WithCorrelationID adds a correlation ID to the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// WithActionID adds a pending-action ID to the context.
func WithActionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ActionIDKey, id)
}

// WithActionType adds an action type to the context.
func WithActionType(ctx context.Context, actionType string) context.Context {
	return context.WithValue(ctx, ActionTypeKey, actionType)
}

// WithDrainID adds a drain cycle ID to the context.
func WithDrainID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, DrainIDKey, id)
}

// WithResourceKey adds a snapshot resource key to the context.
func WithResourceKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ResourceKeyKey, key)
}

// CorrelationID extracts the correlation ID from context.
func CorrelationID(ctx context.Context) string {
	if v := ctx.Value(CorrelationIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// --- Domain-specific logging helpers ---

// LogActionEnqueued logs a write deferred into the pending queue.
func LogActionEnqueued(ctx context.Context, logger *Logger, actionID, actionType string, queueDepth int) {
	logger.InfoContext(ctx, "action enqueued for replay",
		"action_id", actionID,
		"action_type", actionType,
		"queue_depth", queueDepth,
	)
}

// LogDrainStart logs the start of a drain cycle.
func LogDrainStart(ctx context.Context, logger *Logger, drainID string, pending int) {
	logger.InfoContext(ctx, "drain started",
		"drain_id", drainID,
		"pending", pending,
	)
}

// LogDrainComplete logs the completion of a drain cycle.
func LogDrainComplete(ctx context.Context, logger *Logger, drainID string, replayed, deadLettered int, duration time.Duration) {
	logger.InfoContext(ctx, "drain completed",
		"drain_id", drainID,
		"replayed", replayed,
		"dead_lettered", deadLettered,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogDrainAborted logs a drain cycle that stopped before the queue emptied.
func LogDrainAborted(ctx context.Context, logger *Logger, drainID string, err error, remaining int) {
	logger.WarnContext(ctx, "drain aborted",
		"drain_id", drainID,
		"error", err.Error(),
		"remaining", remaining,
	)
}

// LogReplayAttempt logs one replay attempt for a pending action.
func LogReplayAttempt(ctx context.Context, logger *Logger, actionID string, attempt int) {
	logger.DebugContext(ctx, "replay attempt",
		"action_id", actionID,
		"attempt", attempt,
	)
}

// LogReplayFailed logs a failed replay attempt.
func LogReplayFailed(ctx context.Context, logger *Logger, actionID string, err error, attempt int) {
	logger.WarnContext(ctx, "replay attempt failed",
		"action_id", actionID,
		"error", err.Error(),
		"attempt", attempt,
	)
}

// LogDeadLettered logs an action abandoned to the dead-letter log.
func LogDeadLettered(ctx context.Context, logger *Logger, actionID, actionType, reason string) {
	logger.ErrorContext(ctx, "action dead-lettered",
		"action_id", actionID,
		"action_type", actionType,
		"reason", reason,
	)
}

// LogCacheHit logs a snapshot served from the local cache.
func LogCacheHit(ctx context.Context, logger *Logger, key string, age time.Duration) {
	logger.DebugContext(ctx, "cache hit",
		"cache_key", key,
		"age_ms", age.Milliseconds(),
	)
}

// LogCacheMiss logs a snapshot cache miss.
func LogCacheMiss(ctx context.Context, logger *Logger, key string) {
	logger.DebugContext(ctx, "cache miss",
		"cache_key", key,
	)
}

// LogConnectivityChange logs an online/offline transition.
func LogConnectivityChange(ctx context.Context, logger *Logger, online bool, source string) {
	logger.InfoContext(ctx, "connectivity changed",
		"online", online,
		"source", source,
	)
}

// LogRemoteRequest logs an outgoing remote call.
func LogRemoteRequest(ctx context.Context, logger *Logger, actionType, dedupeKey string) {
	logger.DebugContext(ctx, "remote request",
		"action_type", actionType,
		"dedupe_key", dedupeKey,
	)
}

// LogRemoteResponse logs a remote call result.
func LogRemoteResponse(ctx context.Context, logger *Logger, actionType string, latency time.Duration, err error) {
	if err != nil {
		logger.WarnContext(ctx, "remote call failed",
			"action_type", actionType,
			"latency_ms", latency.Milliseconds(),
			"error", err.Error(),
		)
		return
	}
	logger.DebugContext(ctx, "remote call succeeded",
		"action_type", actionType,
		"latency_ms", latency.Milliseconds(),
	)
}
