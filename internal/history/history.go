// Package history keeps an audit log of SQL pipeline requests.
package history

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("history: not found")

const OutcomeOK = "ok"

type Entry struct {
	ID             int64     `json:"id"`
	TraceID        string    `json:"trace_id,omitempty"`
	Question       string    `json:"question"`
	GeneratedQuery string    `json:"generated_query,omitempty"`
	Model          string    `json:"model,omitempty"`
	Outcome        string    `json:"outcome"`
	RowCount       int       `json:"row_count"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

type Recorder interface {
	Record(ctx context.Context, entry Entry) (Entry, error)
}

type Repository interface {
	Recorder
	HealthCheck(ctx context.Context) error
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
	Get(ctx context.Context, id int64) (Entry, error)
}
