// Package storage provides SQLite-based storage implementations for the
// offline layer's durable state.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jbctechsolutions/syncbridge/internal/application/ports"
	"github.com/jbctechsolutions/syncbridge/internal/domain/action"
	domainErrors "github.com/jbctechsolutions/syncbridge/internal/domain/errors"
)

// Compile-time check that ActionQueueRepository implements ActionQueuePort.
var _ ports.ActionQueuePort = (*ActionQueueRepository)(nil)

const lastSyncKey = "last_sync"

// ActionQueueRepository implements ActionQueuePort using SQLite. FIFO order
// comes from the AUTOINCREMENT seq column, so insertion order survives
// restarts.
type ActionQueueRepository struct {
	db *sql.DB
}

// NewActionQueueRepository creates a new pending-action queue repository.
func NewActionQueueRepository(db *sql.DB) *ActionQueueRepository {
	return &ActionQueueRepository{db: db}
}

// Enqueue appends a new pending action. The insert commits before the id is
// returned, so a crash immediately after Enqueue cannot lose the intent.
func (r *ActionQueueRepository) Enqueue(ctx context.Context, actionType action.Type, payload json.RawMessage) (string, error) {
	a, err := action.New(actionType, payload)
	if err != nil {
		return "", domainErrors.NewError(domainErrors.CodeValidation, "invalid action", err)
	}

	query := `
		INSERT INTO pending_actions (id, type, payload, enqueued_at, retries)
		VALUES (?, ?, ?, ?, 0)
	`

	_, err = r.db.ExecContext(ctx, query,
		a.ID,
		string(a.Type),
		nullablePayload(a.Payload),
		a.EnqueuedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue action: %w", err)
	}

	return a.ID, nil
}

// List returns all pending actions in FIFO order, oldest first.
func (r *ActionQueueRepository) List(ctx context.Context) ([]*action.PendingAction, error) {
	query := `
		SELECT id, type, payload, enqueued_at, retries
		FROM pending_actions
		ORDER BY seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending actions: %w", err)
	}
	defer rows.Close()

	var actions []*action.PendingAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending actions: %w", err)
	}

	return actions, nil
}

// Remove deletes an action by id. Removing an absent id is a no-op.
func (r *ActionQueueRepository) Remove(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_actions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove action: %w", err)
	}
	return nil
}

// RemoveMany deletes a batch of actions by id.
func (r *ActionQueueRepository) RemoveMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := "DELETE FROM pending_actions WHERE id IN (" + strings.Join(placeholders, ", ") + ")"
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to remove actions: %w", err)
	}
	return nil
}

// IncrementRetry bumps the retry counter for a failed replay attempt.
func (r *ActionQueueRepository) IncrementRetry(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE pending_actions SET retries = retries + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return domainErrors.NewError(domainErrors.CodeStorage,
			fmt.Sprintf("action not found: %s", id), domainErrors.ErrActionNotFound)
	}

	return nil
}

// Count returns the number of pending actions.
func (r *ActionQueueRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_actions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending actions: %w", err)
	}
	return count, nil
}

// Clear drops all pending actions. Used only for explicit user resets.
func (r *ActionQueueRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_actions`); err != nil {
		return fmt.Errorf("failed to clear pending actions: %w", err)
	}
	return nil
}

// LastSync returns when the queue last drained fully, zero if never.
func (r *ActionQueueRepository) LastSync(ctx context.Context) (time.Time, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM sync_meta WHERE key = ?`, lastSyncKey).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read last sync: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse last sync: %w", err)
	}
	return t, nil
}

// SetLastSync records a fully successful drain.
func (r *ActionQueueRepository) SetLastSync(ctx context.Context, t time.Time) error {
	query := `
		INSERT INTO sync_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := r.db.ExecContext(ctx, query, lastSyncKey, t.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to set last sync: %w", err)
	}
	return nil
}

// scanAction scans one row into a PendingAction.
func scanAction(rows *sql.Rows) (*action.PendingAction, error) {
	var (
		id, actionType string
		payload        sql.NullString
		enqueuedAt     string
		retries        int
	)

	if err := rows.Scan(&id, &actionType, &payload, &enqueuedAt, &retries); err != nil {
		return nil, fmt.Errorf("failed to scan pending action: %w", err)
	}

	parsedAt, err := time.Parse(time.RFC3339Nano, enqueuedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse enqueued_at: %w", err)
	}

	a := &action.PendingAction{
		ID:         id,
		Type:       action.Type(actionType),
		EnqueuedAt: parsedAt,
		Retries:    retries,
	}
	if payload.Valid {
		a.Payload = json.RawMessage(payload.String)
	}

	return a, nil
}

// nullablePayload returns a sql.NullString for the given payload.
func nullablePayload(p json.RawMessage) sql.NullString {
	if len(p) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(p), Valid: true}
}
