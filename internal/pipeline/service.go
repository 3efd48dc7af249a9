// Package pipeline runs the SQL path: describe the view, generate SQL,
// extract and validate it, then execute it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/querydesk/querydesk/internal/history"
	"github.com/querydesk/querydesk/internal/nl2sql"
	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/query"
)

type SQLGenerator interface {
	Generate(ctx context.Context, question string, schema query.SchemaDescription) (string, error)
}

type Response struct {
	Question       string      `json:"question"`
	GeneratedQuery string      `json:"generated_query"`
	RowCount       int         `json:"row_count"`
	Columns        []string    `json:"columns"`
	Data           []query.Row `json:"data"`
}

// Result converts the response back to a tabular query result.
func (r Response) Result() query.Result {
	return query.Result{
		Query:    r.GeneratedQuery,
		Columns:  r.Columns,
		RowCount: r.RowCount,
		Rows:     r.Data,
	}
}

type Options struct {
	Engine    query.Engine
	Generator SQLGenerator
	Extractor nl2sql.Extractor
	View      string
	Model     string
	Recorder  history.Recorder
	Logger    *slog.Logger
}

type Service struct {
	engine    query.Engine
	generator SQLGenerator
	extractor nl2sql.Extractor
	view      string
	model     string
	recorder  history.Recorder
	logger    *slog.Logger
}

func NewService(opts Options) *Service {
	extractor := opts.Extractor
	if extractor == nil {
		extractor = nl2sql.PrefixExtractor{}
	}
	return &Service{
		engine:    opts.Engine,
		generator: opts.Generator,
		extractor: extractor,
		view:      opts.View,
		model:     opts.Model,
		recorder:  opts.Recorder,
		logger:    observability.Component(opts.Logger, "pipeline"),
	}
}

func (s *Service) View() string {
	return s.view
}

// Describe fetches the current view structure. Nothing is cached.
func (s *Service) Describe(ctx context.Context) (query.SchemaDescription, error) {
	start := time.Now()
	schema, err := s.engine.Describe(ctx, s.view)
	observability.ObservePipelineStage("describe", time.Since(start))
	if err != nil {
		return query.SchemaDescription{}, &Error{Kind: KindSchemaUnavailable, Err: fmt.Errorf("describe view %q: %w", s.view, err)}
	}
	return schema, nil
}

// Ask answers question with live rows. Stages run in order and the first
// failure ends the request without retries.
func (s *Service) Ask(ctx context.Context, question string) (Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Response{}, ErrEmptyQuestion
	}
	start := time.Now()
	resp, err := s.ask(ctx, question)
	s.finish(ctx, question, resp, err, time.Since(start))
	return resp, err
}

func (s *Service) ask(ctx context.Context, question string) (Response, error) {
	schema, err := s.Describe(ctx)
	if err != nil {
		return Response{}, err
	}

	stageStart := time.Now()
	raw, err := s.generator.Generate(ctx, question, schema)
	observability.ObservePipelineStage("generate", time.Since(stageStart))
	if err != nil {
		return Response{}, &Error{Kind: KindGenerationFailed, Err: err}
	}

	generated := s.extractor.Extract(raw)
	if !generated.Valid {
		return Response{GeneratedQuery: generated.NormalizedText}, &Error{
			Kind:   KindQueryRejected,
			Query:  generated.NormalizedText,
			Reason: generated.RejectionReason,
		}
	}

	stageStart = time.Now()
	result, err := s.engine.Execute(ctx, generated.NormalizedText)
	observability.ObservePipelineStage("execute", time.Since(stageStart))
	if err != nil {
		return Response{GeneratedQuery: generated.NormalizedText}, &Error{
			Kind:  KindExecutionError,
			Query: generated.NormalizedText,
			Err:   err,
		}
	}

	return Response{
		Question:       question,
		GeneratedQuery: generated.NormalizedText,
		RowCount:       len(result.Rows),
		Columns:        result.Columns,
		Data:           result.Rows,
	}, nil
}

func (s *Service) finish(ctx context.Context, question string, resp Response, err error, elapsed time.Duration) {
	outcome := history.OutcomeOK
	errMessage := ""
	if err != nil {
		outcome = "UNKNOWN"
		if kind, ok := KindOf(err); ok {
			outcome = string(kind)
		}
		errMessage = err.Error()
	}
	observability.ObservePipeline(outcome, resp.RowCount)

	traceID := observability.TraceIDFromContext(ctx)
	attrs := []any{
		slog.String("trace_id", traceID),
		slog.String("outcome", outcome),
		slog.String("generated_query", resp.GeneratedQuery),
		slog.Int("row_count", resp.RowCount),
		slog.Duration("elapsed", elapsed),
	}
	if err != nil {
		s.logger.WarnContext(ctx, "sql pipeline failed", append(attrs, slog.String("error", errMessage))...)
	} else {
		s.logger.InfoContext(ctx, "sql pipeline succeeded", attrs...)
	}

	if s.recorder == nil {
		return
	}
	if _, recErr := s.recorder.Record(ctx, history.Entry{
		TraceID:        traceID,
		Question:       question,
		GeneratedQuery: resp.GeneratedQuery,
		Model:          s.model,
		Outcome:        outcome,
		RowCount:       resp.RowCount,
		ErrorMessage:   errMessage,
		DurationMs:     elapsed.Milliseconds(),
	}); recErr != nil {
		s.logger.WarnContext(ctx, "record query history failed",
			slog.String("trace_id", traceID),
			slog.Any("error", recErr),
		)
	}
}
