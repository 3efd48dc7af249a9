package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/querydesk/querydesk/internal/archive"
	"github.com/querydesk/querydesk/internal/chat"
)

func handleListConversations(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Archive == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARCHIVE_NOT_CONFIGURED", "conversation archive is not configured", false, nil)
		return
	}
	manifests, err := deps.Archive.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "ARCHIVE_ERROR", "failed to list conversations", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": manifests})
}

func handleSaveConversation(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Archive == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARCHIVE_NOT_CONFIGURED", "conversation archive is not configured", false, nil)
		return
	}
	var conv chat.Conversation
	if err := decodeJSON(r, &conv); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid conversation body", false, map[string]any{"details": err.Error()})
		return
	}
	if len(conv.Turns) == 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "TURNS_REQUIRED", "conversation has no turns", false, nil)
		return
	}
	manifest, err := deps.Archive.Save(r.Context(), conv)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "ARCHIVE_ERROR", "failed to save conversation", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, manifest)
}

func handleGetConversation(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Archive == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARCHIVE_NOT_CONFIGURED", "conversation archive is not configured", false, nil)
		return
	}
	id := r.PathValue("id")
	conv, err := deps.Archive.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "CONVERSATION_NOT_FOUND", "conversation was not found", false, map[string]any{"id": id})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "ARCHIVE_ERROR", "failed to load conversation", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func handleHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "query history is not configured", false, nil)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a non-negative integer", false, map[string]any{"limit": raw})
			return
		}
		limit = parsed
	}
	entries, err := deps.History.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_ERROR", "failed to list query history", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
