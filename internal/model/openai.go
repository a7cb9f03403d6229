package model

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/salmanfarse/folio/internal/log"
	"github.com/salmanfarse/folio/internal/session"
)

// modelCallsPerSecond throttles outbound model traffic proactively,
// before the provider throttles us.
const modelCallsPerSecond = 2

// OpenAI implements Client and Embedder against the OpenAI API.
// All calls go through the shared retry policy and a proactive rate
// limiter; retries apply to decisions, stream opens, and embeddings,
// never mid-stream.
type OpenAI struct {
	client      *openai.Client
	model       string
	embedModel  string
	temperature float32
	retry       RetryConfig
	limiter     *rate.Limiter
	logger      log.Logger

	// baseURL is only consulted during construction.
	baseURL string
}

// OpenAIOption configures the client.
type OpenAIOption func(*OpenAI)

// WithBaseURL points the client at a different API host. Tests use
// this with httptest.
func WithBaseURL(url string) OpenAIOption {
	return func(o *OpenAI) { o.baseURL = url }
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg RetryConfig) OpenAIOption {
	return func(o *OpenAI) { o.retry = cfg }
}

// WithLimiter replaces the proactive rate limiter. nil disables it.
func WithLimiter(l *rate.Limiter) OpenAIOption {
	return func(o *OpenAI) { o.limiter = l }
}

// NewOpenAI creates the model client. temperature is passed through on
// every request; embedModel drives Embed.
func NewOpenAI(apiKey, model, embedModel string, temperature float32, logger log.Logger, opts ...OpenAIOption) *OpenAI {
	if logger == nil {
		logger = log.NewNop()
	}
	o := &OpenAI{
		model:       model,
		embedModel:  embedModel,
		temperature: temperature,
		retry:       DefaultRetryConfig(),
		limiter:     rate.NewLimiter(rate.Limit(modelCallsPerSecond), modelCallsPerSecond),
		logger:      logger.With("component", "openai"),
	}
	for _, opt := range opts {
		opt(o)
	}

	cfg := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	o.client = openai.NewClientWithConfig(cfg)
	return o
}

// Decide implements Client.
func (o *OpenAI) Decide(ctx context.Context, messages []Message, tools []ToolSpec) (Decision, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: o.temperature,
	}
	for _, spec := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Parameters,
			},
		})
	}

	resp, err := Retry(ctx, o.retry, o.limiter, o.logger, "chat completion",
		func(ctx context.Context) (openai.ChatCompletionResponse, error) {
			return o.client.CreateChatCompletion(ctx, req)
		})
	if err != nil {
		return Decision{}, err
	}
	if len(resp.Choices) == 0 {
		return Decision{}, ErrNoChoices
	}

	msg := resp.Choices[0].Message
	decision := Decision{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		decision.ToolCalls = append(decision.ToolCalls, session.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return decision, nil
}

// Stream implements Client. Only the stream open is retried; once
// tokens flow, a broken stream surfaces to the caller.
func (o *OpenAI) Stream(ctx context.Context, messages []Message) (TokenStream, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: o.temperature,
	}

	stream, err := Retry(ctx, o.retry, o.limiter, o.logger, "chat stream open",
		func(ctx context.Context) (*openai.ChatCompletionStream, error) {
			return o.client.CreateChatCompletionStream(ctx, req)
		})
	if err != nil {
		return nil, err
	}
	return &openaiStream{inner: stream}, nil
}

// Embed implements Embedder. A nil result with nil error is never
// returned; callers treating embedding as optional handle the error.
func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := Retry(ctx, o.retry, o.limiter, o.logger, "embeddings",
		func(ctx context.Context) (openai.EmbeddingResponse, error) {
			return o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: texts,
				Model: openai.EmbeddingModel(o.embedModel),
			})
		})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// openaiStream adapts the SDK stream to TokenStream.
type openaiStream struct {
	inner *openai.ChatCompletionStream
}

// Recv returns the next content delta. Deltas without content (role
// preludes, finish chunks) yield an empty string rather than being
// skipped, so callers see every frame boundary.
func (s *openaiStream) Recv() (string, error) {
	resp, err := s.inner.Recv()
	if err != nil {
		return "", err // io.EOF passes through unchanged
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *openaiStream) Close() error {
	return s.inner.Close()
}

var (
	_ Client   = (*OpenAI)(nil)
	_ Embedder = (*OpenAI)(nil)
)

// toOpenAIMessages converts the neutral message sequence to SDK types.
func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}
