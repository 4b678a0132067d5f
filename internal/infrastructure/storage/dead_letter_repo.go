package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jbctechsolutions/syncbridge/internal/application/ports"
	"github.com/jbctechsolutions/syncbridge/internal/domain/action"
	domainErrors "github.com/jbctechsolutions/syncbridge/internal/domain/errors"
)

// Compile-time check that DeadLetterRepository implements DeadLetterPort.
var _ ports.DeadLetterPort = (*DeadLetterRepository)(nil)

// DeadLetterRepository implements DeadLetterPort using SQLite.
type DeadLetterRepository struct {
	db *sql.DB
}

// NewDeadLetterRepository creates a new dead-letter repository.
func NewDeadLetterRepository(db *sql.DB) *DeadLetterRepository {
	return &DeadLetterRepository{db: db}
}

// Add records an abandoned action.
func (r *DeadLetterRepository) Add(ctx context.Context, dl *action.DeadLetter) error {
	if dl.ID == "" {
		return domainErrors.NewError(domainErrors.CodeValidation, "dead letter id is required", nil)
	}

	query := `
		INSERT INTO dead_letters (id, type, payload, retries, reason, failed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			retries = excluded.retries,
			reason = excluded.reason,
			failed_at = excluded.failed_at
	`

	_, err := r.db.ExecContext(ctx, query,
		dl.ID,
		string(dl.Type),
		nullablePayload(dl.Payload),
		dl.Retries,
		dl.Reason,
		dl.FailedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to add dead letter: %w", err)
	}

	return nil
}

// List returns dead letters, most recent first.
func (r *DeadLetterRepository) List(ctx context.Context) ([]*action.DeadLetter, error) {
	query := `
		SELECT id, type, payload, retries, reason, failed_at
		FROM dead_letters
		ORDER BY failed_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query dead letters: %w", err)
	}
	defer rows.Close()

	var letters []*action.DeadLetter
	for rows.Next() {
		dl, err := scanDeadLetter(rows)
		if err != nil {
			return nil, err
		}
		letters = append(letters, dl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dead letters: %w", err)
	}

	return letters, nil
}

// Get returns one dead letter by id.
func (r *DeadLetterRepository) Get(ctx context.Context, id string) (*action.DeadLetter, error) {
	var (
		actionType, reason, failedAt string
		payload                      sql.NullString
		retries                      int
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT type, payload, retries, reason, failed_at FROM dead_letters WHERE id = ?`, id,
	).Scan(&actionType, &payload, &retries, &reason, &failedAt)
	if err == sql.ErrNoRows {
		return nil, domainErrors.NewError(domainErrors.CodeStorage,
			fmt.Sprintf("dead letter not found: %s", id), domainErrors.ErrActionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dead letter: %w", err)
	}

	parsedAt, err := time.Parse(time.RFC3339Nano, failedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse failed_at: %w", err)
	}

	dl := &action.DeadLetter{
		ID:       id,
		Type:     action.Type(actionType),
		Retries:  retries,
		Reason:   reason,
		FailedAt: parsedAt,
	}
	if payload.Valid {
		dl.Payload = json.RawMessage(payload.String)
	}

	return dl, nil
}

// Remove deletes a dead letter by id.
func (r *DeadLetterRepository) Remove(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM dead_letters WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove dead letter: %w", err)
	}
	return nil
}

// Count returns the number of dead letters.
func (r *DeadLetterRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letters`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count dead letters: %w", err)
	}
	return count, nil
}

// scanDeadLetter scans one row into a DeadLetter.
func scanDeadLetter(rows *sql.Rows) (*action.DeadLetter, error) {
	var (
		id, actionType, reason, failedAt string
		payload                          sql.NullString
		retries                          int
	)

	if err := rows.Scan(&id, &actionType, &payload, &retries, &reason, &failedAt); err != nil {
		return nil, fmt.Errorf("failed to scan dead letter: %w", err)
	}

	parsedAt, err := time.Parse(time.RFC3339Nano, failedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse failed_at: %w", err)
	}

	dl := &action.DeadLetter{
		ID:       id,
		Type:     action.Type(actionType),
		Retries:  retries,
		Reason:   reason,
		FailedAt: parsedAt,
	}
	if payload.Valid {
		dl.Payload = json.RawMessage(payload.String)
	}

	return dl, nil
}
