// Package api serves the query pipeline, chat and archive over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/querydesk/querydesk/internal/archive"
	"github.com/querydesk/querydesk/internal/chat"
	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/history"
	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/pipeline"
	"github.com/querydesk/querydesk/internal/query"
)

type ReadinessCheck func(ctx context.Context) error

type QueryService interface {
	Ask(ctx context.Context, question string) (pipeline.Response, error)
	Describe(ctx context.Context) (query.SchemaDescription, error)
}

type ChatProcessor interface {
	ProcessTurn(ctx context.Context, conv chat.Conversation, question string, sink chat.Sink) (chat.Conversation, chat.TurnReport)
}

type ConversationArchive interface {
	Save(ctx context.Context, conv chat.Conversation) (archive.Manifest, error)
	Load(ctx context.Context, id string) (chat.Conversation, error)
	List(ctx context.Context) ([]archive.Manifest, error)
}

type HistoryLister interface {
	ListRecent(ctx context.Context, limit int) ([]history.Entry, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	AuthMiddleware    func(http.Handler) http.Handler
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Pipeline          QueryService
	Classifier        chat.IntentClassifier
	Chat              ChatProcessor
	Archive           ConversationArchive
	History           HistoryLister
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	// Health, readiness and metrics stay open. Everything else needs a key
	// when auth is configured.
	protected := func(h http.Handler) http.Handler { return h }
	if deps.AuthMiddleware != nil {
		protected = deps.AuthMiddleware
	}
	// Routes that call the language model share one per-IP budget.
	limited := func(h http.HandlerFunc) http.Handler { return protected(h) }
	if cfg.HTTP.RateLimitPerMinute > 0 {
		limiter := httprate.LimitByIP(cfg.HTTP.RateLimitPerMinute, time.Minute)
		limited = func(h http.HandlerFunc) http.Handler { return protected(limiter(h)) }
	}
	keyed := func(h http.HandlerFunc) http.Handler { return protected(h) }

	mux.Handle("POST /v1/query", limited(func(w http.ResponseWriter, r *http.Request) {
		handleQuery(deps, w, r)
	}))
	mux.Handle("POST /v1/intent", limited(func(w http.ResponseWriter, r *http.Request) {
		handleIntent(deps, w, r)
	}))
	mux.Handle("POST /v1/chat", limited(func(w http.ResponseWriter, r *http.Request) {
		handleChat(deps, w, r)
	}))
	mux.Handle("GET /v1/schema", keyed(func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	}))
	mux.Handle("GET /v1/conversations", keyed(func(w http.ResponseWriter, r *http.Request) {
		handleListConversations(deps, w, r)
	}))
	mux.Handle("POST /v1/conversations", keyed(func(w http.ResponseWriter, r *http.Request) {
		handleSaveConversation(deps, w, r)
	}))
	mux.Handle("GET /v1/conversations/{id}", keyed(func(w http.ResponseWriter, r *http.Request) {
		handleGetConversation(deps, w, r)
	}))
	mux.Handle("GET /v1/history", keyed(func(w http.ResponseWriter, r *http.Request) {
		handleHistory(deps, w, r)
	}))

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.HTTP.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Trace-ID"},
			ExposedHeaders: []string{"X-Trace-ID"},
			MaxAge:         300,
		}),
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	middlewares = append(middlewares, observability.MetricsMiddleware)
	return chain(mux, middlewares...)
}

// CheckPing adapts a dependency ping to a readiness check that names the
// failing dependency.
func CheckPing(name string, ping func(ctx context.Context) error) ReadinessCheck {
	if ping == nil {
		return nil
	}
	return func(ctx context.Context) error {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("%s unavailable: %w", name, err)
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
