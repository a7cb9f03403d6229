package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/salmanfarse/folio/internal/chat"
	"github.com/salmanfarse/folio/internal/log"
	"github.com/salmanfarse/folio/internal/session"
)

// Response metadata headers. They are computed before generation
// begins, so they ride ahead of the streamed body.
const (
	headerConversationID = "x-conversation-id"
	headerCitations      = "x-citations"
	headerFunctionCalls  = "x-function-calls"
)

// assembler forwards answer tokens to the client as they arrive while
// accumulating the full text, then persists the accumulated text as
// an assistant turn. The stream is closed exactly once, even when
// zero tokens were produced or the client went away mid-answer.
type assembler struct {
	store  session.Store
	logger log.Logger
}

// writeMetadata sets the out-of-band headers shared by streamed and
// clarification responses.
func (a *assembler) writeMetadata(w http.ResponseWriter, reply *chat.Reply) {
	w.Header().Set(headerConversationID, reply.ConversationID)
	if citations, err := json.Marshal(reply.Citations); err == nil {
		w.Header().Set(headerCitations, string(citations))
	}
	if calls, err := json.Marshal(reply.ToolsInvoked); err == nil {
		w.Header().Set(headerFunctionCalls, string(calls))
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
}

// stream drains the reply's token stream into w.
func (a *assembler) stream(ctx context.Context, w http.ResponseWriter, reply *chat.Reply) {
	a.writeMetadata(w, reply)
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	defer func() {
		if err := reply.Stream.Close(); err != nil {
			a.logger.Debug("closing token stream", "error", err)
		}
	}()

	var assembled []byte
	for {
		token, err := reply.Stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// The stream broke mid-answer. What reached the client so
			// far is still worth remembering.
			a.logger.Warn("token stream interrupted",
				"conversation_id", reply.ConversationID,
				"error", err)
			break
		}

		assembled = append(assembled, token...)
		if _, err := io.WriteString(w, token); err != nil {
			a.logger.Debug("client stopped consuming stream",
				"conversation_id", reply.ConversationID,
				"error", err)
			break
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	if len(assembled) == 0 {
		return
	}
	if err := a.store.Append(ctx, reply.ConversationID, session.NewAssistantTurn(string(assembled))); err != nil {
		a.logger.Warn("persisting assistant turn",
			"conversation_id", reply.ConversationID,
			"error", err)
	}
}
