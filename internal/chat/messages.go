package chat

import (
	"github.com/salmanfarse/folio/internal/model"
	"github.com/salmanfarse/folio/internal/retrieval"
	"github.com/salmanfarse/folio/internal/session"
)

// contextHeading delimits the retrieved chunks inside the system
// message so the model can tell instructions from evidence.
const contextHeading = "=== RETRIEVED CODEBASE CONTEXT ==="

// BuildMessages assembles the ordered sequence sent to the model: one
// system message carrying the prompt and the retrieved-context block,
// then the history turns in original order. An empty context block is
// rendered as the explicit no-context marker so the model never reads
// absence as license to fabricate. History arrives already bounded by
// the session store; this function never re-truncates.
//
// The history cap prunes oldest-first, which can separate a tool turn
// from its assistant(tool_call) partner. The model API rejects such
// sequences, so orphaned tool turns are dropped: a tool result whose
// requesting call is gone, or a tool request missing any of its
// results.
func BuildMessages(systemPrompt, contextBlock string, history []session.Turn) []model.Message {
	if contextBlock == "" {
		contextBlock = retrieval.NoContextFound
	}

	resultIDs := make(map[string]bool)
	for _, turn := range history {
		if turn.Role == session.RoleTool {
			resultIDs[turn.ToolCallID] = true
		}
	}

	messages := make([]model.Message, 0, len(history)+1)
	messages = append(messages, model.Message{
		Role:    string(session.RoleSystem),
		Content: systemPrompt + "\n\n" + contextHeading + "\n" + contextBlock,
	})

	requestIDs := make(map[string]bool)
	for _, turn := range history {
		switch {
		case len(turn.ToolCalls) > 0:
			complete := true
			for _, call := range turn.ToolCalls {
				if !resultIDs[call.ID] {
					complete = false
					break
				}
			}
			if !complete {
				continue
			}
			for _, call := range turn.ToolCalls {
				requestIDs[call.ID] = true
			}
		case turn.Role == session.RoleTool:
			if !requestIDs[turn.ToolCallID] {
				continue
			}
		}
		messages = append(messages, model.Message{
			Role:       string(turn.Role),
			Content:    turn.Content,
			Name:       turn.ToolName,
			ToolCallID: turn.ToolCallID,
			ToolCalls:  turn.ToolCalls,
		})
	}
	return messages
}
