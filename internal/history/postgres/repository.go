package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/querydesk/querydesk/internal/history"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Repository struct {
	db *sql.DB
}

var _ history.Repository = (*Repository)(nil)

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping history db: %w", err)
	}
	return nil
}

func (r *Repository) Record(ctx context.Context, entry history.Entry) (history.Entry, error) {
	query := `
INSERT INTO query_history (trace_id, question, generated_query, model, outcome, row_count, error_message, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING entry_id, created_at`
	if err := r.db.QueryRowContext(ctx, query,
		entry.TraceID,
		entry.Question,
		entry.GeneratedQuery,
		entry.Model,
		entry.Outcome,
		entry.RowCount,
		entry.ErrorMessage,
		entry.DurationMs,
	).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return history.Entry{}, fmt.Errorf("record query history: %w", err)
	}
	return entry, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (history.Entry, error) {
	query := `
SELECT entry_id, trace_id, question, generated_query, model, outcome, row_count, error_message, duration_ms, created_at
FROM query_history
WHERE entry_id = $1`

	var entry history.Entry
	if err := scanEntry(r.db.QueryRowContext(ctx, query, id), &entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return history.Entry{}, history.ErrNotFound
		}
		return history.Entry{}, fmt.Errorf("get query history entry: %w", err)
	}
	return entry, nil
}

func (r *Repository) ListRecent(ctx context.Context, limit int) ([]history.Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT entry_id, trace_id, question, generated_query, model, outcome, row_count, error_message, duration_ms, created_at
FROM query_history
ORDER BY created_at DESC, entry_id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]history.Entry, 0)
	for rows.Next() {
		var entry history.Entry
		if err := scanEntry(rows, &entry); err != nil {
			return nil, fmt.Errorf("scan query history row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query history rows: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner, entry *history.Entry) error {
	return row.Scan(
		&entry.ID,
		&entry.TraceID,
		&entry.Question,
		&entry.GeneratedQuery,
		&entry.Model,
		&entry.Outcome,
		&entry.RowCount,
		&entry.ErrorMessage,
		&entry.DurationMs,
		&entry.CreatedAt,
	)
}
