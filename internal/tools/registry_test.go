package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/salmanfarse/folio/internal/log"
	"github.com/salmanfarse/folio/internal/session"
)

func echoTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "echoes its arguments",
		Run: func(_ context.Context, args json.RawMessage) (string, error) {
			return string(args), nil
		},
	}
}

func TestRegistry_Execute(t *testing.T) {
	reg := NewRegistry(log.NewNop(), echoTool("echo"))

	got := reg.Execute(context.Background(), session.ToolCall{
		ID:        "call_1",
		Name:      "echo",
		Arguments: `{"x":1}`,
	})
	if got != `{"x":1}` {
		t.Fatalf("Execute() = %q, want arguments echoed back", got)
	}
}

func TestRegistry_ExecuteUnknownTool(t *testing.T) {
	reg := NewRegistry(log.NewNop(), echoTool("echo"), echoTool("other"))

	got := reg.Execute(context.Background(), session.ToolCall{Name: "bogus"})
	if !strings.Contains(got, `unknown tool "bogus"`) {
		t.Errorf("Execute() = %q, want unknown-tool explanation", got)
	}
	if !strings.Contains(got, "echo") || !strings.Contains(got, "other") {
		t.Errorf("Execute() = %q, want available tool names listed", got)
	}
}

func TestRegistry_ExecuteRunError(t *testing.T) {
	failing := Tool{
		Name: "broken",
		Run: func(context.Context, json.RawMessage) (string, error) {
			return "", errors.New("backend offline")
		},
	}
	reg := NewRegistry(log.NewNop(), failing)

	got := reg.Execute(context.Background(), session.ToolCall{Name: "broken"})
	if !strings.Contains(got, "Error executing broken") || !strings.Contains(got, "backend offline") {
		t.Errorf("Execute() = %q, want error surfaced as text", got)
	}
}

func TestRegistry_ExecuteTruncatesLongResults(t *testing.T) {
	huge := Tool{
		Name: "huge",
		Run: func(context.Context, json.RawMessage) (string, error) {
			return strings.Repeat("x", MaxResultChars+500), nil
		},
	}
	reg := NewRegistry(log.NewNop(), huge)

	got := reg.Execute(context.Background(), session.ToolCall{Name: "huge"})
	if len(got) > MaxResultChars+len(ResultTruncationMarker) {
		t.Errorf("result length = %d, want at most %d", len(got), MaxResultChars+len(ResultTruncationMarker))
	}
	if !strings.HasSuffix(got, ResultTruncationMarker) {
		t.Errorf("result does not end with truncation marker")
	}
}

func TestRegistry_ExecuteTruncatesAtRuneBoundary(t *testing.T) {
	// Place a multi-byte rune straddling the cut point so a naive
	// byte slice would split it.
	multibyte := Tool{
		Name: "multibyte",
		Run: func(context.Context, json.RawMessage) (string, error) {
			return strings.Repeat("a", MaxResultChars-1) + strings.Repeat("界", 200), nil
		},
	}
	reg := NewRegistry(log.NewNop(), multibyte)

	got := reg.Execute(context.Background(), session.ToolCall{Name: "multibyte"})
	if !utf8.ValidString(got) {
		t.Error("truncated result is not valid UTF-8")
	}
	if !strings.HasSuffix(got, ResultTruncationMarker) {
		t.Errorf("result does not end with truncation marker")
	}
	if len(got) > MaxResultChars+len(ResultTruncationMarker) {
		t.Errorf("result length = %d, want at most %d", len(got), MaxResultChars+len(ResultTruncationMarker))
	}
}

func TestRegistry_SpecsPreserveOrder(t *testing.T) {
	reg := NewRegistry(log.NewNop(), echoTool("b"), echoTool("a"), echoTool("c"))

	specs := reg.Specs()
	want := []string{"b", "a", "c"}
	if len(specs) != len(want) {
		t.Fatalf("len(Specs()) = %d, want %d", len(specs), len(want))
	}
	for i, name := range want {
		if specs[i].Name != name {
			t.Errorf("Specs()[%d].Name = %q, want %q", i, specs[i].Name, name)
		}
	}
}

func TestRegistry_DuplicateNamesReplace(t *testing.T) {
	first := echoTool("dup")
	second := Tool{
		Name: "dup",
		Run: func(context.Context, json.RawMessage) (string, error) {
			return "second", nil
		},
	}
	reg := NewRegistry(log.NewNop(), first, second)

	if got := len(reg.Names()); got != 1 {
		t.Fatalf("len(Names()) = %d, want 1", got)
	}
	if got := reg.Execute(context.Background(), session.ToolCall{Name: "dup"}); got != "second" {
		t.Errorf("Execute() = %q, want the later registration to win", got)
	}
}
