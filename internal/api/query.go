package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/querydesk/querydesk/internal/pipeline"
)

type questionRequest struct {
	Question string `json:"question"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query pipeline is not configured", false, nil)
		return
	}
	question, ok := decodeQuestion(w, r)
	if !ok {
		return
	}

	resp, err := deps.Pipeline.Ask(r.Context(), question)
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query pipeline is not configured", false, nil)
		return
	}
	schema, err := deps.Pipeline.Describe(r.Context())
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"view":        schema.View,
		"columns":     schema.Columns,
		"description": schema.Render(),
	})
}

func handleIntent(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Classifier == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "INTENT_NOT_CONFIGURED", "intent classifier is not configured", false, nil)
		return
	}
	question, ok := decodeQuestion(w, r)
	if !ok {
		return
	}
	result := deps.Classifier.Classify(r.Context(), question)
	writeJSON(w, http.StatusOK, result)
}

func decodeQuestion(w http.ResponseWriter, r *http.Request) (string, bool) {
	var request questionRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid request body", false, map[string]any{"details": err.Error()})
		return "", false
	}
	question := strings.TrimSpace(request.Question)
	if question == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return "", false
	}
	return question, true
}

func writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, pipeline.ErrEmptyQuestion) {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", err.Error(), false, nil)
		return
	}

	var pipelineErr *pipeline.Error
	if !errors.As(err, &pipelineErr) {
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), false, nil)
		return
	}

	var extra map[string]any
	if pipelineErr.Query != "" {
		extra = map[string]any{"generated_query": pipelineErr.Query}
	}
	code := string(pipelineErr.Kind)
	switch pipelineErr.Kind {
	case pipeline.KindQueryRejected, pipeline.KindExecutionError:
		writeError(r.Context(), w, http.StatusBadRequest, code, pipelineErr.Error(), false, extra)
	case pipeline.KindGenerationFailed:
		writeError(r.Context(), w, http.StatusBadGateway, code, pipelineErr.Error(), true, extra)
	default:
		writeError(r.Context(), w, http.StatusInternalServerError, code, pipelineErr.Error(), true, extra)
	}
}
