// Package model is the boundary to the language model service. It
// exposes a small Decide/Stream interface, an embedding client, and
// the retry policy every outbound call in this repo shares.
package model

import (
	"context"
	"errors"
	"io"

	"github.com/salmanfarse/folio/internal/session"
)

// ErrNoChoices indicates the model returned an empty response.
var ErrNoChoices = errors.New("model: response has no choices")

// Message is one entry of the sequence sent to the model. Role values
// match session roles; Name and ToolCallID are set only on tool-result
// messages, ToolCalls only on assistant tool-request messages.
type Message struct {
	Role       string
	Content    string
	Name       string
	ToolCallID string
	ToolCalls  []session.ToolCall
}

// ToolSpec describes one callable tool in the catalog sent with a
// Decide request. Parameters is the JSON Schema of the argument
// object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  any
}

// Decision is the model's answer to one Decide call: either plain
// content (terminal) or a set of requested tool invocations.
type Decision struct {
	Content   string
	ToolCalls []session.ToolCall
}

// RequestedTools reports whether the model asked for tool executions
// instead of answering.
func (d Decision) RequestedTools() bool {
	return len(d.ToolCalls) > 0
}

// TokenStream yields answer tokens as the model produces them. Recv
// returns io.EOF when the stream is complete. Close releases the
// underlying connection and is safe to call after EOF.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// textStream replays already-generated content as a one-chunk stream
// so answers produced by Decide flow through the same streaming path
// as live token streams.
type textStream struct {
	content string
	done    bool
}

// NewTextStream wraps final text in a TokenStream.
func NewTextStream(content string) TokenStream {
	return &textStream{content: content}
}

func (s *textStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	s.done = true
	return s.content, nil
}

func (s *textStream) Close() error { return nil }

// Client is the model service collaborator.
type Client interface {
	// Decide sends the message sequence plus the tool catalog and
	// returns either a final answer or tool requests. An empty catalog
	// forbids tool use, which callers rely on to force a final answer.
	Decide(ctx context.Context, messages []Message, tools []ToolSpec) (Decision, error)

	// Stream opens a token stream for the finalized message sequence.
	Stream(ctx context.Context, messages []Message) (TokenStream, error)
}

// Embedder is the embedding service collaborator.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
