package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/salmanfarse/folio/internal/log"
	"github.com/salmanfarse/folio/internal/model"
	"github.com/salmanfarse/folio/internal/session"
	"github.com/salmanfarse/folio/internal/testutil"
	"github.com/salmanfarse/folio/internal/tools"
)

func echoRegistry() *tools.Registry {
	return tools.NewRegistry(log.NewNop(), tools.Tool{
		Name:        "echo",
		Description: "echoes its arguments",
		Run: func(_ context.Context, args json.RawMessage) (string, error) {
			return string(args), nil
		},
	})
}

func TestToolLoop_AnswerEndsLoop(t *testing.T) {
	client := &testutil.ModelClient{
		Decisions: []model.Decision{{Content: "plain answer"}},
	}
	loop := NewToolLoop(client, echoRegistry(), 5, log.NewNop())

	result, err := loop.Run(context.Background(), []model.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.FinalText != "plain answer" {
		t.Errorf("FinalText = %q, want model content", result.FinalText)
	}
	if calls := client.DecideCalls(); calls != 1 {
		t.Errorf("Decide calls = %d, want 1", calls)
	}
	if len(result.ToolsInvoked) != 0 {
		t.Errorf("ToolsInvoked = %v, want none", result.ToolsInvoked)
	}
}

func TestToolLoop_ExecutesRequestedTools(t *testing.T) {
	client := &testutil.ModelClient{
		Decisions: []model.Decision{
			{ToolCalls: []session.ToolCall{{ID: "call_1", Name: "echo", Arguments: `{"x":1}`}}},
			{Content: "done"},
		},
	}
	loop := NewToolLoop(client, echoRegistry(), 5, log.NewNop())

	result, err := loop.Run(context.Background(), []model.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(result.ToolsInvoked) != 1 || result.ToolsInvoked[0] != "echo" {
		t.Errorf("ToolsInvoked = %v, want [echo]", result.ToolsInvoked)
	}
	// user, assistant(tool call), tool(result)
	if len(result.Messages) != 3 {
		t.Fatalf("len(Messages) = %d, want 3", len(result.Messages))
	}
	toolMsg := result.Messages[2]
	if toolMsg.Role != "tool" || toolMsg.ToolCallID != "call_1" || toolMsg.Content != `{"x":1}` {
		t.Errorf("tool result message = %+v", toolMsg)
	}
	if result.FinalText != "done" {
		t.Errorf("FinalText = %q, want done", result.FinalText)
	}
	// The same activity as session turns, paired request then result.
	if len(result.Turns) != 2 {
		t.Fatalf("len(Turns) = %d, want 2", len(result.Turns))
	}
	if result.Turns[0].Role != session.RoleAssistant || len(result.Turns[0].ToolCalls) != 1 {
		t.Errorf("first turn = %+v, want assistant tool request", result.Turns[0])
	}
	if result.Turns[1].Role != session.RoleTool || result.Turns[1].ToolCallID != "call_1" || result.Turns[1].Content != `{"x":1}` {
		t.Errorf("second turn = %+v, want tool result", result.Turns[1])
	}
}

func TestToolLoop_BoundTerminates(t *testing.T) {
	// The scripted client repeats its last decision, so it requests a
	// tool forever.
	client := &testutil.ModelClient{
		Decisions: []model.Decision{
			{ToolCalls: []session.ToolCall{{ID: "call_n", Name: "echo", Arguments: `{}`}}},
		},
	}
	loop := NewToolLoop(client, echoRegistry(), 5, log.NewNop())

	result, err := loop.Run(context.Background(), []model.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if calls := client.DecideCalls(); calls != 5 {
		t.Errorf("Decide calls = %d, want exactly the loop bound", calls)
	}
	if len(result.ToolsInvoked) != 5 {
		t.Errorf("ToolsInvoked = %v, want 5 executions", result.ToolsInvoked)
	}
	if result.FinalText != "" {
		t.Errorf("FinalText = %q, want empty after hitting the bound", result.FinalText)
	}
}

func TestToolLoop_UnknownToolContinues(t *testing.T) {
	client := &testutil.ModelClient{
		Decisions: []model.Decision{
			{ToolCalls: []session.ToolCall{{ID: "call_1", Name: "bogus", Arguments: `{}`}}},
			{Content: "recovered"},
		},
	}
	loop := NewToolLoop(client, echoRegistry(), 5, log.NewNop())

	result, err := loop.Run(context.Background(), []model.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.FinalText != "recovered" {
		t.Errorf("FinalText = %q, want the model to recover", result.FinalText)
	}
	toolMsg := result.Messages[2]
	if !strings.Contains(toolMsg.Content, "unknown tool") {
		t.Errorf("tool result = %q, want unknown-tool explanation", toolMsg.Content)
	}
}

func TestToolLoop_ModelErrorAborts(t *testing.T) {
	wantErr := errors.New("model unreachable")
	client := &testutil.ModelClient{DecideErr: wantErr}
	loop := NewToolLoop(client, echoRegistry(), 5, log.NewNop())

	_, err := loop.Run(context.Background(), []model.Message{{Role: "user", Content: "hi"}})
	if !errors.Is(err, wantErr) {
		t.Errorf("Run() error = %v, want %v", err, wantErr)
	}
}
