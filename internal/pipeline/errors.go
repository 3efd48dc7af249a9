package pipeline

import (
	"errors"
	"fmt"
)

// Kind names the stage that stopped a SQL pipeline request.
type Kind string

const (
	KindSchemaUnavailable Kind = "SCHEMA_UNAVAILABLE"
	KindGenerationFailed  Kind = "GENERATION_FAILED"
	KindQueryRejected     Kind = "QUERY_REJECTED"
	KindExecutionError    Kind = "EXECUTION_ERROR"
)

var ErrEmptyQuestion = errors.New("question is required")

// Error is returned by every failing pipeline stage. Query holds the
// generated text when a query exists at the point of failure.
type Error struct {
	Kind   Kind
	Query  string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindSchemaUnavailable:
		return fmt.Sprintf("schema unavailable: %v", e.Err)
	case KindGenerationFailed:
		return fmt.Sprintf("query generation failed: %v", e.Err)
	case KindQueryRejected:
		return fmt.Sprintf("could not generate a valid SQL query (%s); model response: '%s'", e.Reason, e.Query)
	case KindExecutionError:
		return fmt.Sprintf("database execution error: %v; query was: '%s'", e.Err, e.Query)
	default:
		return fmt.Sprintf("pipeline error: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the pipeline failure kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var pipelineErr *Error
	if errors.As(err, &pipelineErr) {
		return pipelineErr.Kind, true
	}
	return "", false
}
