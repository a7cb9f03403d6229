package model

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/salmanfarse/folio/internal/log"
)

// newTestClient points an OpenAI client at a local handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenAI("test-key", "gpt-4o", "text-embedding-3-small", 0.3, log.NewNop(),
		WithBaseURL(server.URL+"/v1"),
		WithLimiter(nil),
	)
}

func TestDecide_PlainAnswer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req["model"] != "gpt-4o" {
			t.Errorf("model = %v", req["model"])
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "The engine uses bitboards."}, "finish_reason": "stop"}]
		}`)
	})

	d, err := client.Decide(context.Background(), []Message{
		{Role: "system", Content: "You are a portfolio assistant."},
		{Role: "user", Content: "How does move generation work?"},
	}, nil)
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if d.RequestedTools() {
		t.Error("plain answer reported tool requests")
	}
	if d.Content != "The engine uses bitboards." {
		t.Errorf("content = %q", d.Content)
	}
}

func TestDecide_ToolCalls(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Tools []struct {
				Type     string `json:"type"`
				Function struct {
					Name string `json:"name"`
				} `json:"function"`
			} `json:"tools"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if len(req.Tools) != 1 || req.Tools[0].Function.Name != "read_file" {
			t.Errorf("tools on the wire = %+v", req.Tools)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-2",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {
				"role": "assistant",
				"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "read_file", "arguments": "{\"path\":\"main.go\"}"}}]
			}, "finish_reason": "tool_calls"}]
		}`)
	})

	d, err := client.Decide(context.Background(),
		[]Message{{Role: "user", Content: "show me main.go"}},
		[]ToolSpec{{Name: "read_file", Description: "Read one file", Parameters: map[string]any{"type": "object"}}},
	)
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if !d.RequestedTools() {
		t.Fatal("tool-call response not detected")
	}
	call := d.ToolCalls[0]
	if call.ID != "call_1" || call.Name != "read_file" || call.Arguments != `{"path":"main.go"}` {
		t.Errorf("tool call = %+v", call)
	}
}

func TestDecide_NoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id": "chatcmpl-3", "object": "chat.completion", "choices": []}`)
	})

	_, err := client.Decide(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if !errors.Is(err, ErrNoChoices) {
		t.Errorf("Decide() error = %v, want ErrNoChoices", err)
	}
}

func TestStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{"Hello", ", ", "world"} {
			payload, _ := json.Marshal(map[string]any{
				"id":      "chatcmpl-4",
				"object":  "chat.completion.chunk",
				"choices": []map[string]any{{"index": 0, "delta": map[string]any{"content": chunk}}},
			})
			io.WriteString(w, "data: "+string(payload)+"\n\n")
		}
		io.WriteString(w, "data: [DONE]\n\n")
	})

	stream, err := client.Stream(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	defer stream.Close()

	var got string
	for {
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv() error: %v", err)
		}
		got += token
	}

	if got != "Hello, world" {
		t.Errorf("streamed text = %q, want %q", got, "Hello, world")
	}
}

func TestEmbed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"object": "list",
			"data": [
				{"object": "embedding", "index": 0, "embedding": [0.1, 0.2]},
				{"object": "embedding", "index": 1, "embedding": [0.3, 0.4]}
			]
		}`)
	})

	vectors, err := client.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("len(vectors) = %d, want 2", len(vectors))
	}
	if vectors[0][0] != 0.1 || vectors[1][1] != 0.4 {
		t.Errorf("vectors = %v", vectors)
	}
}

func TestEmbed_CountMismatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"object": "list", "data": [{"object": "embedding", "index": 0, "embedding": [0.1]}]}`)
	})

	if _, err := client.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("Embed() = nil error on vector count mismatch")
	}
}

func TestEmbed_EmptyInput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request made for empty input")
	})

	vectors, err := client.Embed(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Errorf("Embed(nil) = %v, %v; want nil, nil", vectors, err)
	}
}
