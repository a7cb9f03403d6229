package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/salmanfarse/folio/internal/log"
)

// RetryConfig configures the shared retry policy for outbound API
// calls (model decisions, stream opens, embeddings, GitHub fetches).
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns the defaults used in production.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryableStatuses are HTTP statuses worth retrying.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// retryablePatterns matches transient failures from collaborators that
// surface only as error strings. Typed errors are preferred; the
// OpenAI SDK's APIError is checked before these.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},
	{"500", "502", "503", "504", "unavailable"},
	{"connection reset", "timeout", "temporary"},
}

// Retryable reports whether err is transient. APIError status codes
// are authoritative; other errors fall back to substring matching.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatuses[apiErr.HTTPStatusCode]
	}

	errStr := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, pattern := range group {
			if strings.Contains(errStr, pattern) {
				return true
			}
		}
	}
	return false
}

// Retry runs fn with exponential backoff under the shared policy.
// Each attempt waits on the limiter first, so retries cannot pile onto
// an upstream that is already throttling us. Non-retryable errors fail
// immediately.
func Retry[T any](ctx context.Context, cfg RetryConfig, limiter *rate.Limiter, logger log.Logger, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	delay := cfg.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return zero, fmt.Errorf("%s: rate limit wait: %w", op, err)
			}
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Debug("succeeded after retry",
					"op", op,
					"attempts", attempt+1,
					"elapsed", time.Since(start).String(),
				)
			}
			return result, nil
		}
		lastErr = err

		if !Retryable(err) {
			return zero, fmt.Errorf("%s: %w", op, err)
		}
		if attempt == cfg.MaxRetries {
			break
		}

		logger.Debug("retrying after transient error",
			"op", op,
			"attempt", attempt+1,
			"delay", delay.String(),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%s: canceled during retry: %w", op, ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, cfg.MaxInterval)
		}
	}

	return zero, fmt.Errorf("%s after %d retries (elapsed %v): %w",
		op, cfg.MaxRetries, time.Since(start), lastErr)
}
