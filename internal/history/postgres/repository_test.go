package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/querydesk/querydesk/internal/history"
)

var entryColumns = []string{
	"entry_id", "trace_id", "question", "generated_query", "model",
	"outcome", "row_count", "error_message", "duration_ms", "created_at",
}

func TestRecord(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`
INSERT INTO query_history (trace_id, question, generated_query, model, outcome, row_count, error_message, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING entry_id, created_at`)).
		WithArgs("trace-1", "Show me all suppliers from the USA", "SELECT * FROM SUPPLIER_VIEW WHERE Country='USA';", "llama3", "ok", 4, "", int64(812)).
		WillReturnRows(sqlmock.NewRows([]string{"entry_id", "created_at"}).AddRow(int64(7), now))

	entry, err := repo.Record(context.Background(), history.Entry{
		TraceID:        "trace-1",
		Question:       "Show me all suppliers from the USA",
		GeneratedQuery: "SELECT * FROM SUPPLIER_VIEW WHERE Country='USA';",
		Model:          "llama3",
		Outcome:        history.OutcomeOK,
		RowCount:       4,
		DurationMs:     812,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if entry.ID != 7 || !entry.CreatedAt.Equal(now) {
		t.Fatalf("entry = %#v", entry)
	}
	assertSQLMock(t, mock)
}

func TestRecordWrapsError(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery("INSERT INTO query_history").WillReturnError(errors.New("relation does not exist"))

	_, err := NewRepository(db).Record(context.Background(), history.Entry{Question: "q", Outcome: "ok"})
	if err == nil {
		t.Fatal("Record() expected error")
	}
	assertSQLMock(t, mock)
}

func TestGetNotFound(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery("FROM query_history").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := NewRepository(db).Get(context.Background(), 99)
	if !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	assertSQLMock(t, mock)
}

func TestListRecentClampsLimit(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, entry_id DESC\nLIMIT $1")).
		WithArgs(maxListLimit).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow(int64(2), "t2", "q2", "", "llama3", "QUERY_REJECTED", 0, "does not start with SELECT", int64(40), now).
			AddRow(int64(1), "t1", "q1", "SELECT 1", "llama3", "ok", 1, "", int64(90), now.Add(-time.Minute)))

	entries, err := repo.ListRecent(context.Background(), 10_000)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d", len(entries))
	}
	if entries[0].Outcome != "QUERY_REJECTED" || entries[1].GeneratedQuery != "SELECT 1" {
		t.Fatalf("entries = %#v", entries)
	}
	assertSQLMock(t, mock)
}

func TestListRecentDefaultLimit(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery("FROM query_history").
		WithArgs(defaultListLimit).
		WillReturnRows(sqlmock.NewRows(entryColumns))

	entries, err := NewRepository(db).ListRecent(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("entries = %#v", entries)
	}
	assertSQLMock(t, mock)
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), DBConfig{}); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
