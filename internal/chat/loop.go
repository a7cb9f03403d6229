package chat

import (
	"context"
	"fmt"

	"github.com/salmanfarse/folio/internal/log"
	"github.com/salmanfarse/folio/internal/model"
	"github.com/salmanfarse/folio/internal/session"
	"github.com/salmanfarse/folio/internal/tools"
)

// DefaultMaxLoops bounds tool-calling iterations per request.
const DefaultMaxLoops = 5

// LoopResult is the finalized message list after tool calling, plus
// the names of the tools that ran, in execution order. Turns carries
// the same tool activity as session turns, paired assistant(tool_call)
// then tool(result), ready to be appended to the conversation history.
// FinalText is the model's answer when it answered within the bound;
// empty means the bound was hit and the caller must request the final
// answer itself, without tool access.
type LoopResult struct {
	Messages     []model.Message
	ToolsInvoked []string
	Turns        []session.Turn
	FinalText    string
}

// ToolLoop lets the model request tool executions before the final
// answer is generated. It is a bounded iteration, not recursion: each
// pass sends the current message list plus the tool catalog, and the
// model either requests tools (results are appended and the loop
// continues) or answers, which ends the loop. Hitting the bound ends
// the loop too; the caller then requests the final answer without
// tool access, so termination never depends on model behavior.
type ToolLoop struct {
	client   model.Client
	registry *tools.Registry
	maxLoops int
	logger   log.Logger
}

// NewToolLoop creates a ToolLoop. maxLoops values below 1 fall back
// to DefaultMaxLoops.
func NewToolLoop(client model.Client, registry *tools.Registry, maxLoops int, logger log.Logger) *ToolLoop {
	if maxLoops < 1 {
		maxLoops = DefaultMaxLoops
	}
	return &ToolLoop{
		client:   client,
		registry: registry,
		maxLoops: maxLoops,
		logger:   logger.With("component", "toolloop"),
	}
}

// Run executes the loop. Tool failures and unknown tool names become
// explanatory text results fed back to the model; only model-service
// errors abort the request.
func (l *ToolLoop) Run(ctx context.Context, messages []model.Message) (LoopResult, error) {
	catalog := l.registry.Specs()
	var (
		invoked []string
		turns   []session.Turn
	)

	for i := range l.maxLoops {
		decision, err := l.client.Decide(ctx, messages, catalog)
		if err != nil {
			return LoopResult{}, fmt.Errorf("model decision (messages=%d): %w", len(messages), err)
		}
		if !decision.RequestedTools() {
			return LoopResult{Messages: messages, ToolsInvoked: invoked, Turns: turns, FinalText: decision.Content}, nil
		}

		messages = append(messages, model.Message{
			Role:      string(session.RoleAssistant),
			ToolCalls: decision.ToolCalls,
		})
		turns = append(turns, session.NewToolCallTurn(decision.ToolCalls))
		for _, call := range decision.ToolCalls {
			result := l.registry.Execute(ctx, call)
			invoked = append(invoked, call.Name)
			messages = append(messages, model.Message{
				Role:       string(session.RoleTool),
				Name:       call.Name,
				ToolCallID: call.ID,
				Content:    result,
			})
			turns = append(turns, session.NewToolResultTurn(call.ID, call.Name, result))
			l.logger.Debug("tool executed",
				"iteration", i+1,
				"tool", call.Name,
				"result_len", len(result))
		}
	}

	l.logger.Warn("tool loop bound reached, forcing final answer",
		"max_loops", l.maxLoops,
		"tools_invoked", len(invoked))
	return LoopResult{Messages: messages, ToolsInvoked: invoked, Turns: turns}, nil
}
