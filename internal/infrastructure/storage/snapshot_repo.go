package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jbctechsolutions/syncbridge/internal/application/ports"
	"github.com/jbctechsolutions/syncbridge/internal/domain/snapshot"
	"github.com/jbctechsolutions/syncbridge/internal/infrastructure/logging"
)

// Compile-time check that SnapshotRepository implements SnapshotStorePort.
var _ ports.SnapshotStorePort = (*SnapshotRepository)(nil)

// SnapshotRepository implements SnapshotStorePort using SQLite. At most one
// row exists per key; a new put overwrites the previous one.
type SnapshotRepository struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewSnapshotRepository creates a new snapshot cache repository.
func NewSnapshotRepository(db *sql.DB, logger *logging.Logger) *SnapshotRepository {
	if logger == nil {
		logger = logging.Default()
	}
	return &SnapshotRepository{db: db, logger: logger}
}

// Put stores data under key with the current timestamp. A storage failure
// is logged and swallowed: refreshing the cache must never fail an
// otherwise successful remote call.
func (r *SnapshotRepository) Put(ctx context.Context, key string, data json.RawMessage) {
	if key == "" {
		return
	}

	query := `
		INSERT INTO snapshots (key, data, cached_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, cached_at = excluded.cached_at
	`

	_, err := r.db.ExecContext(ctx, query, key, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		r.logger.WarnContext(ctx, "snapshot write failed, continuing without cache",
			"cache_key", key,
			"error", err.Error(),
		)
	}
}

// Get returns the snapshot for key, or nil if absent. A corrupt row is
// treated as absent.
func (r *SnapshotRepository) Get(ctx context.Context, key string) (*snapshot.Snapshot, error) {
	var (
		data     string
		cachedAt string
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT data, cached_at FROM snapshots WHERE key = ?`, key,
	).Scan(&data, &cachedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	parsedAt, err := time.Parse(time.RFC3339Nano, cachedAt)
	if err != nil {
		r.logger.WarnContext(ctx, "snapshot has corrupt timestamp, treating as absent",
			"cache_key", key,
		)
		return nil, nil
	}

	if !json.Valid([]byte(data)) {
		r.logger.WarnContext(ctx, "snapshot has corrupt payload, treating as absent",
			"cache_key", key,
		)
		return nil, nil
	}

	return &snapshot.Snapshot{
		Key:      key,
		Data:     json.RawMessage(data),
		CachedAt: parsedAt,
	}, nil
}

// Clear removes the entry for key.
func (r *SnapshotRepository) Clear(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	return nil
}

// ClearAll removes every entry.
func (r *SnapshotRepository) ClearAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}
	return nil
}

// Keys returns all cached resource keys.
func (r *SnapshotRepository) Keys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key FROM snapshots ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot keys: %w", err)
	}

	return keys, nil
}
