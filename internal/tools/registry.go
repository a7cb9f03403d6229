// Package tools holds the tool catalog the model may call during a
// conversation: reading repository files, summarizing repository
// structure, and reading public web pages. Execution failures never
// abort a request; every failure becomes explanatory text fed back to
// the model.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/salmanfarse/folio/internal/log"
	"github.com/salmanfarse/folio/internal/model"
	"github.com/salmanfarse/folio/internal/session"
)

// MaxResultChars bounds a tool result before it joins the message
// sequence. Longer output is cut with an explicit marker.
const MaxResultChars = 10000

// ResultTruncationMarker signals a cut tool result.
const ResultTruncationMarker = "\n...[TRUNCATED]"

// Tool is one callable entry in the catalog. Run receives the raw
// JSON arguments produced by the model.
type Tool struct {
	Name        string
	Description string
	Schema      any
	Run         func(ctx context.Context, args json.RawMessage) (string, error)
}

// Registry is the immutable tool catalog for one server.
type Registry struct {
	tools  map[string]Tool
	order  []string
	logger log.Logger
}

// NewRegistry builds a catalog. Later tools with a duplicate name
// replace earlier ones.
func NewRegistry(logger log.Logger, tools ...Tool) *Registry {
	if logger == nil {
		logger = log.NewNop()
	}
	r := &Registry{
		tools:  make(map[string]Tool, len(tools)),
		logger: logger.With("component", "tools"),
	}
	for _, t := range tools {
		if _, exists := r.tools[t.Name]; !exists {
			r.order = append(r.order, t.Name)
		}
		r.tools[t.Name] = t
	}
	return r
}

// Specs returns the catalog in registration order, in the shape the
// model client sends on a Decide call.
func (r *Registry) Specs() []model.ToolSpec {
	specs := make([]model.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		specs = append(specs, model.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Schema,
		})
	}
	return specs
}

// Names returns the registered tool names in order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Execute runs one requested invocation and always produces a text
// result. Unknown names and execution failures come back as
// explanatory text, never as an error: the conversation should
// continue regardless of a single tool's fate.
func (r *Registry) Execute(ctx context.Context, call session.ToolCall) string {
	t, ok := r.tools[call.Name]
	if !ok {
		r.logger.Warn("model requested unknown tool", "tool", call.Name)
		return fmt.Sprintf("Error: unknown tool %q. Available tools: %s.",
			call.Name, strings.Join(r.order, ", "))
	}

	result, err := t.Run(ctx, json.RawMessage(call.Arguments))
	if err != nil {
		r.logger.Warn("tool execution failed", "tool", call.Name, "error", err)
		return fmt.Sprintf("Error executing %s: %v", call.Name, err)
	}

	if len(result) > MaxResultChars {
		// Back off to a rune boundary so the cut never produces
		// invalid UTF-8.
		cut := MaxResultChars
		for cut > 0 && !utf8.RuneStart(result[cut]) {
			cut--
		}
		result = result[:cut] + ResultTruncationMarker
	}
	return result
}
