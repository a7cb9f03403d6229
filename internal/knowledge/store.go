// Package knowledge stores embedded code chunks in PostgreSQL with
// pgvector and serves similarity search over them. It implements the
// search collaborator behind the retrieval pipeline and the sink of
// the ingest pipeline.
package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/salmanfarse/folio/internal/log"
	"github.com/salmanfarse/folio/internal/retrieval"
)

// Document is one embedded chunk as stored. (Repo, Path, ChunkIndex)
// is the natural key; re-ingesting a file overwrites its chunks.
type Document struct {
	Repo       string
	Path       string
	URL        string
	Type       string
	ChunkIndex int
	Content    string
	Embedding  []float32
}

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store manages code chunks with vector similarity search.
// Safe for concurrent use; all state lives in PostgreSQL.
type Store struct {
	db     DB
	logger log.Logger
}

// New creates a knowledge store.
func New(db DB, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, logger: logger.With("component", "knowledge")}
}

// Search returns the topK chunks nearest to the query embedding by
// cosine distance. An empty repoFilter searches all repositories.
// Score is cosine similarity, higher is closer.
func (s *Store) Search(ctx context.Context, embedding []float32, topK int, repoFilter string) ([]retrieval.Chunk, error) {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}

	rows, err := s.db.Query(ctx, `
		SELECT content, repo, path, url, type, 1 - (embedding <=> $1) AS score
		FROM code_chunks
		WHERE $2 = '' OR repo = $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		pgvector.NewVector(embedding), repoFilter, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var chunks []retrieval.Chunk
	for rows.Next() {
		var c retrieval.Chunk
		if err := rows.Scan(&c.Content, &c.Repo, &c.Path, &c.URL, &c.Type, &c.Score); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	s.logger.Debug("vector search", "results", len(chunks), "top_k", topK, "filter", repoFilter)
	return chunks, nil
}

// Upsert writes documents, overwriting any existing chunk with the
// same (repo, path, chunk_index).
func (s *Store) Upsert(ctx context.Context, docs []Document) error {
	for _, doc := range docs {
		_, err := s.db.Exec(ctx, `
			INSERT INTO code_chunks (repo, path, chunk_index, content, url, type, embedding, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			ON CONFLICT (repo, path, chunk_index)
			DO UPDATE SET
				content = EXCLUDED.content,
				url = EXCLUDED.url,
				type = EXCLUDED.type,
				embedding = EXCLUDED.embedding,
				updated_at = now()`,
			doc.Repo, doc.Path, doc.ChunkIndex, doc.Content, doc.URL, doc.Type,
			pgvector.NewVector(doc.Embedding),
		)
		if err != nil {
			return fmt.Errorf("upsert chunk %s/%s#%d: %w", doc.Repo, doc.Path, doc.ChunkIndex, err)
		}
	}
	return nil
}

// DeleteRepo removes all chunks of one repository, used before a full
// re-ingest.
func (s *Store) DeleteRepo(ctx context.Context, repo string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM code_chunks WHERE repo = $1`, repo)
	if err != nil {
		return 0, fmt.Errorf("delete repo chunks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count reports the number of stored chunks, optionally per repo.
func (s *Store) Count(ctx context.Context, repo string) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM code_chunks WHERE $1 = '' OR repo = $1`, repo,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

var _ retrieval.Searcher = (*Store)(nil)
