package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/salmanfarse/folio/internal/chat"
	"github.com/salmanfarse/folio/internal/log"
)

// maxRequestBytes bounds the chat request body.
const maxRequestBytes = 1 << 20

// chatRequest is the inbound wire shape.
type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	RepoFilter     string `json:"repoFilter"`
	Mode           string `json:"mode"`
}

type chatHandler struct {
	orchestrator *chat.Orchestrator
	assembler    *assembler
	logger       log.Logger
}

// handle runs one chat turn and streams the answer. Ambiguous
// requests get a short clarification body instead of a model stream,
// under the same conversation-id header.
func (h *chatHandler) handle(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	body := io.LimitReader(r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON", h.logger)
		return
	}

	mode, err := chat.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_mode", err.Error(), h.logger)
		return
	}

	reply, err := h.orchestrator.Chat(r.Context(), chat.Request{
		ConversationID: req.ConversationID,
		Message:        req.Message,
		RepoFilter:     req.RepoFilter,
		Mode:           mode,
	})
	if errors.Is(err, chat.ErrEmptyMessage) {
		writeError(w, http.StatusBadRequest, "empty_message", "message is required", h.logger)
		return
	}
	if err != nil {
		h.logger.Error("chat request failed", "error", err)
		// The orchestrator's error chain carries prompt sizing
		// (message and context counts), so the envelope is enough to
		// diagnose a failing turn without server log access.
		writeError(w, http.StatusInternalServerError, "chat_failed", err.Error(), h.logger)
		return
	}

	if reply.Clarification != "" {
		h.assembler.writeMetadata(w, reply)
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, reply.Clarification); err != nil {
			h.logger.Debug("writing clarification", "error", err)
		}
		return
	}

	h.assembler.stream(r.Context(), w, reply)
}
