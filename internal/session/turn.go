// Package session provides conversation history persistence.
//
// A session holds the ordered turns of one conversation plus the active
// entity key used for context resolution. [Store] is the persistence
// contract; [PostgresStore] is the durable implementation, [MemoryStore]
// the in-process one, and [Resilient] combines them so a storage outage
// never hard-fails a request.
package session

import (
	"time"
	"unicode/utf8"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// MaxContentBytes is the default cap on a single turn's content. Longer
// content is cut and marked, never silently dropped.
const MaxContentBytes = 20000

// TruncationMarker is appended to content cut at MaxContentBytes.
const TruncationMarker = "...[TRUNCATED]"

// ToolCall describes one tool invocation requested by the model.
// Arguments is the raw JSON argument object as produced by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Turn is a single conversation entry. The valid field combinations are
// fixed per role, so turns are built through the role constructors
// rather than struct literals:
//
//   - user, system: Content only
//   - assistant: Content, or ToolCalls when requesting tools
//   - tool: Content (the tool result) plus ToolName and ToolCallID
//
// Turns are immutable once appended to a store.
type Turn struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolName   string     `json:"toolName,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NewUserTurn builds a user turn.
func NewUserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: Truncate(content), Timestamp: time.Now()}
}

// NewAssistantTurn builds a plain assistant answer turn.
func NewAssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: Truncate(content), Timestamp: time.Now()}
}

// NewSystemTurn builds a system turn.
func NewSystemTurn(content string) Turn {
	return Turn{Role: RoleSystem, Content: Truncate(content), Timestamp: time.Now()}
}

// NewToolCallTurn builds the assistant turn recording a tool request.
// Content is empty; the calls carry the payload.
func NewToolCallTurn(calls []ToolCall) Turn {
	return Turn{Role: RoleAssistant, ToolCalls: calls, Timestamp: time.Now()}
}

// NewToolResultTurn builds the tool turn carrying one execution result,
// correlated to the requesting call by callID.
func NewToolResultTurn(callID, name, result string) Turn {
	return Turn{
		Role:       RoleTool,
		Content:    Truncate(result),
		ToolName:   name,
		ToolCallID: callID,
		Timestamp:  time.Now(),
	}
}

// Truncate cuts content at MaxContentBytes and appends the marker.
// Content at or under the cap is returned unchanged. The cut point
// backs off to a rune boundary so truncation never produces invalid
// UTF-8.
func Truncate(content string) string {
	if len(content) <= MaxContentBytes {
		return content
	}
	cut := MaxContentBytes
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + TruncationMarker
}
