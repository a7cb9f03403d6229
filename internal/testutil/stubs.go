// Package testutil provides shared test doubles and infrastructure:
// stub collaborators for the model, embedding, and search services,
// and a disposable PostgreSQL container for integration tests.
package testutil

import (
	"context"
	"io"
	"sync"

	"github.com/salmanfarse/folio/internal/model"
	"github.com/salmanfarse/folio/internal/retrieval"
)

// TokenStream replays a fixed token sequence, then io.EOF. RecvErr,
// when set, is returned after the tokens instead of io.EOF.
type TokenStream struct {
	Tokens  []string
	RecvErr error

	mu     sync.Mutex
	pos    int
	closed int
}

func (s *TokenStream) Recv() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.Tokens) {
		if s.RecvErr != nil {
			return "", s.RecvErr
		}
		return "", io.EOF
	}
	tok := s.Tokens[s.pos]
	s.pos++
	return tok, nil
}

func (s *TokenStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// CloseCount reports how many times Close ran.
func (s *TokenStream) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ModelClient is a scripted model.Client. Each Decide call consumes
// the next entry of Decisions; when they run out, the last one
// repeats (so an always-requests-tools script stays that way).
type ModelClient struct {
	Decisions []model.Decision
	DecideErr error

	StreamTokens []string
	StreamErr    error

	mu           sync.Mutex
	decideCalls  int
	streamCalls  int
	LastMessages []model.Message
	LastTools    []model.ToolSpec
	LastStream   *TokenStream
}

func (c *ModelClient) Decide(_ context.Context, messages []model.Message, tools []model.ToolSpec) (model.Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decideCalls++
	c.LastMessages = messages
	c.LastTools = tools
	if c.DecideErr != nil {
		return model.Decision{}, c.DecideErr
	}
	if len(c.Decisions) == 0 {
		return model.Decision{}, nil
	}
	i := c.decideCalls - 1
	if i >= len(c.Decisions) {
		i = len(c.Decisions) - 1
	}
	return c.Decisions[i], nil
}

func (c *ModelClient) Stream(_ context.Context, messages []model.Message) (model.TokenStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streamCalls++
	c.LastMessages = messages
	if c.StreamErr != nil {
		return nil, c.StreamErr
	}
	c.LastStream = &TokenStream{Tokens: c.StreamTokens}
	return c.LastStream, nil
}

// DecideCalls reports how many Decide calls were made.
func (c *ModelClient) DecideCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decideCalls
}

// StreamCalls reports how many Stream calls were made.
func (c *ModelClient) StreamCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamCalls
}

// Embedder returns the same vector for every input text. A nil
// Vector with no Err models "embedding service unavailable".
type Embedder struct {
	Vector []float32
	Err    error
	Calls  int
}

func (e *Embedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.Calls++
	if e.Err != nil {
		return nil, e.Err
	}
	if e.Vector == nil {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = e.Vector
	}
	return out, nil
}

// Searcher returns a fixed chunk list and records the last query.
type Searcher struct {
	Chunks []retrieval.Chunk
	Err    error

	Calls      int
	LastTopK   int
	LastFilter string
}

func (s *Searcher) Search(_ context.Context, _ []float32, topK int, repoFilter string) ([]retrieval.Chunk, error) {
	s.Calls++
	s.LastTopK = topK
	s.LastFilter = repoFilter
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Chunks, nil
}

var (
	_ model.Client       = (*ModelClient)(nil)
	_ model.TokenStream  = (*TokenStream)(nil)
	_ retrieval.Embedder = (*Embedder)(nil)
	_ retrieval.Searcher = (*Searcher)(nil)
)
