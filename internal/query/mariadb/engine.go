package mariadb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/query"
)

// Engine runs describe and select statements on a connection scoped to a
// single call.
type Engine struct {
	db           *sqlx.DB
	queryTimeout time.Duration
}

var _ query.Engine = (*Engine)(nil)

func NewEngine(db *sqlx.DB, queryTimeout time.Duration) *Engine {
	return &Engine{db: db, queryTimeout: queryTimeout}
}

func (e *Engine) Describe(ctx context.Context, view string) (query.SchemaDescription, error) {
	if !config.ValidIdentifier(view) {
		return query.SchemaDescription{}, fmt.Errorf("invalid view name %q", view)
	}

	var description query.SchemaDescription
	err := e.withConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		rows, err := conn.QueryxContext(ctx, "DESCRIBE "+quoteIdent(view))
		if err != nil {
			return fmt.Errorf("describe view %q: %w", view, err)
		}
		defer func() { _ = rows.Close() }()

		columns := make([]query.Column, 0)
		for rows.Next() {
			row := map[string]any{}
			if err := rows.MapScan(row); err != nil {
				return fmt.Errorf("scan describe row: %w", err)
			}
			columns = append(columns, query.Column{
				Name: asString(row["Field"]),
				Type: asString(row["Type"]),
			})
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate describe rows: %w", err)
		}
		if len(columns) == 0 {
			return fmt.Errorf("view %q has no columns", view)
		}
		description = query.SchemaDescription{View: view, Columns: columns}
		return nil
	})
	return description, err
}

func (e *Engine) Execute(ctx context.Context, sqlText string) (query.Result, error) {
	statement := stripTrailingSemicolons(sqlText)
	if statement == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}

	start := time.Now()
	result := query.Result{Query: sqlText}
	err := e.withConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		rows, err := conn.QueryxContext(ctx, statement)
		if err != nil {
			return fmt.Errorf("execute query: %w", err)
		}
		defer func() { _ = rows.Close() }()

		columns, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("query columns: %w", err)
		}
		resultRows := make([]query.Row, 0)
		for rows.Next() {
			row := map[string]any{}
			if err := rows.MapScan(row); err != nil {
				return fmt.Errorf("scan row: %w", err)
			}
			resultRows = append(resultRows, normalizeRow(row))
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate rows: %w", err)
		}
		result.Columns = columns
		result.Rows = resultRows
		result.RowCount = len(resultRows)
		return nil
	})
	if err != nil {
		return query.Result{}, err
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (e *Engine) Ping(ctx context.Context) error {
	return e.withConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		return conn.PingContext(ctx)
	})
}

// withConn acquires one connection for fn and releases it on every path.
func (e *Engine) withConn(ctx context.Context, fn func(context.Context, *sqlx.Conn) error) error {
	if e.db == nil {
		return fmt.Errorf("mariadb connection is not configured")
	}
	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}
	conn, err := e.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()
	return fn(ctx, conn)
}

func normalizeRow(row map[string]any) query.Row {
	normalized := make(query.Row, len(row))
	for key, value := range row {
		switch typed := value.(type) {
		case []byte:
			normalized[key] = string(typed)
		default:
			normalized[key] = typed
		}
	}
	return normalized
}

func asString(value any) string {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	case string:
		return typed
	case nil:
		return ""
	default:
		return fmt.Sprint(typed)
	}
}

func quoteIdent(value string) string {
	return "`" + strings.ReplaceAll(value, "`", "``") + "`"
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
