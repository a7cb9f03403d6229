package retrieval

import (
	"context"
	"errors"

	"github.com/salmanfarse/folio/internal/log"
)

// errEmbedderUnavailable marks a skipped retrieval. It is never
// cached: the next query retries the embedder, so retrieval resumes
// as soon as the service does.
var errEmbedderUnavailable = errors.New("embedding service unavailable")

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 8

// Searcher is the similarity-search collaborator. Implemented by the
// knowledge store; defined here by the consumer.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, topK int, repoFilter string) ([]Chunk, error)
}

// Embedder turns texts into vectors. A nil vector result (no error)
// signals the embedding service is unavailable and retrieval should be
// skipped, not failed.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// SearchOption adjusts one Retrieve call.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK   int
	filter string
}

// WithTopK overrides the number of chunks retrieved.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithEntityFilter restricts results to one repository.
func WithEntityFilter(repo string) SearchOption {
	return func(c *searchConfig) { c.filter = repo }
}

// Retriever runs the embed→search round trip behind the TTL cache.
type Retriever struct {
	embedder Embedder
	searcher Searcher
	cache    *Cache[[]Chunk]
	topK     int
	logger   log.Logger
}

// NewRetriever wires the retrieval pipeline. topK <= 0 falls back to
// DefaultTopK.
func NewRetriever(embedder Embedder, searcher Searcher, cache *Cache[[]Chunk], topK int, logger log.Logger) *Retriever {
	if logger == nil {
		logger = log.NewNop()
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		embedder: embedder,
		searcher: searcher,
		cache:    cache,
		topK:     topK,
		logger:   logger.With("component", "retriever"),
	}
}

// Retrieve returns ranked chunks for the query. Degradations return an
// empty result, never an error the caller must branch on:
//
//   - embedding unavailable: skip retrieval, answer without context
//   - search failure with no cache entry: skip retrieval, log it
//
// Repeated queries inside the TTL window are served from cache without
// touching the embedder or searcher.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...SearchOption) []Chunk {
	cfg := searchConfig{topK: r.topK}
	for _, opt := range opts {
		opt(&cfg)
	}

	key := Key(query, cfg.filter)
	chunks, err := r.cache.GetOrFetch(ctx, key, func(ctx context.Context) ([]Chunk, error) {
		vectors, err := r.embedder.Embed(ctx, []string{query})
		if err != nil {
			return nil, err
		}
		if len(vectors) == 0 || len(vectors[0]) == 0 {
			return nil, errEmbedderUnavailable
		}
		return r.searcher.Search(ctx, vectors[0], cfg.topK, cfg.filter)
	})
	if err != nil {
		if errors.Is(err, errEmbedderUnavailable) {
			r.logger.Warn("embedding unavailable, skipping retrieval", "filter", cfg.filter)
			return nil
		}
		r.logger.Warn("retrieval failed, answering without context",
			"filter", cfg.filter,
			"error", err,
		)
		return nil
	}
	return chunks
}
