// Package query describes the queried view and runs read statements against it.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// SchemaDescription is the structure of one view in DESCRIBE order.
type SchemaDescription struct {
	View    string   `json:"view"`
	Columns []Column `json:"columns"`
}

// Render formats the description the way the SQL prompt expects it.
func (s SchemaDescription) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "View Name: %s\nColumns:\n", s.View)
	for i, column := range s.Columns {
		fmt.Fprintf(&b, "  - %s (Type: %s)", column.Name, column.Type)
		if i < len(s.Columns)-1 {
			b.WriteString(",\n")
		}
	}
	return b.String()
}

// Row maps column names to scanned values.
type Row map[string]any

type Result struct {
	Query    string        `json:"query"`
	Columns  []string      `json:"columns"`
	RowCount int           `json:"row_count"`
	Rows     []Row         `json:"rows"`
	Duration time.Duration `json:"-"`
}

// Values returns row values in column order.
func (r Result) Values(row Row) []any {
	values := make([]any, len(r.Columns))
	for i, column := range r.Columns {
		values[i] = row[column]
	}
	return values
}

type Engine interface {
	Describe(ctx context.Context, view string) (SchemaDescription, error)
	Execute(ctx context.Context, sql string) (Result, error)
}
