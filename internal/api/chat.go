package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/querydesk/querydesk/internal/chat"
	"github.com/querydesk/querydesk/internal/intent"
)

type chatRequest struct {
	Conversation chat.Conversation `json:"conversation"`
	Message      string            `json:"message"`
	Stream       bool              `json:"stream"`
}

type chatResponse struct {
	Conversation chat.Conversation `json:"conversation"`
	Intent       intent.Result     `json:"intent"`
	Error        string            `json:"error,omitempty"`
}

// chatEvent is one NDJSON line of a streamed chat turn. Fragment events carry
// only the text added since the previous fragment.
type chatEvent struct {
	Type         string             `json:"type"`
	State        chat.State         `json:"state,omitempty"`
	Intent       *intent.Result     `json:"intent,omitempty"`
	Text         string             `json:"text,omitempty"`
	Turn         *chat.Turn         `json:"turn,omitempty"`
	Conversation *chat.Conversation `json:"conversation,omitempty"`
	Error        string             `json:"error,omitempty"`
}

func handleChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Chat == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat orchestrator is not configured", false, nil)
		return
	}

	var request chatRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid chat request body", false, map[string]any{"details": err.Error()})
		return
	}
	message := strings.TrimSpace(request.Message)
	if message == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "MESSAGE_REQUIRED", "message is required", false, nil)
		return
	}

	if !request.Stream {
		conv, report := deps.Chat.ProcessTurn(r.Context(), request.Conversation, message, chat.NopSink{})
		writeJSON(w, http.StatusOK, chatResponse{Conversation: conv, Intent: report.Intent, Error: errorText(report.Err)})
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	sink := &streamSink{encoder: json.NewEncoder(w), controller: http.NewResponseController(w)}
	conv, report := deps.Chat.ProcessTurn(r.Context(), request.Conversation, message, sink)
	sink.emit(chatEvent{Type: "done", Conversation: &conv, Error: errorText(report.Err)})
}

// streamSink writes each orchestrator callback as one flushed NDJSON line.
// After the first write error it drops further events; the request context
// is cancelled by then and ProcessTurn unwinds on its own.
type streamSink struct {
	encoder    *json.Encoder
	controller *http.ResponseController
	sent       int
	failed     bool
}

func (s *streamSink) StateChanged(state chat.State) {
	s.emit(chatEvent{Type: "state", State: state})
}

func (s *streamSink) IntentDetected(result intent.Result) {
	s.emit(chatEvent{Type: "intent", Intent: &result})
}

func (s *streamSink) Fragment(accumulated string) {
	delta := accumulated
	if s.sent <= len(accumulated) {
		delta = accumulated[s.sent:]
	}
	s.sent = len(accumulated)
	if delta == "" {
		return
	}
	s.emit(chatEvent{Type: "fragment", Text: delta})
}

func (s *streamSink) TurnAppended(turn chat.Turn) {
	s.emit(chatEvent{Type: "turn", Turn: &turn})
}

func (s *streamSink) emit(event chatEvent) {
	if s.failed {
		return
	}
	if err := s.encoder.Encode(event); err != nil {
		s.failed = true
		return
	}
	_ = s.controller.Flush()
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
