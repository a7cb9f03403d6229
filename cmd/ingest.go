package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/salmanfarse/folio/internal/app"
	"github.com/salmanfarse/folio/internal/config"
	"github.com/salmanfarse/folio/internal/github"
	"github.com/salmanfarse/folio/internal/knowledge"
	"github.com/salmanfarse/folio/internal/log"
)

// embedBatchSize bounds texts per embedding request.
const embedBatchSize = 32

// runIngest indexes the named repositories, or every catalog project
// when no names are given. Each repository is re-indexed from scratch:
// old chunks are deleted before the fresh ones are written.
func runIngest(repos []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg.LogJSON, cfg.Debug)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	if len(repos) == 0 {
		for _, e := range a.Catalog.All() {
			// Catalog entries without a repository link keep their
			// display title as the key; those cannot be fetched.
			if !strings.Contains(e.Key, " ") {
				repos = append(repos, e.Key)
			}
		}
	}

	var failed int
	for _, repo := range repos {
		if err := ingestRepo(ctx, a, repo, logger); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			logger.Error("ingest failed", "repo", repo, "error", err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("ingest finished with %d of %d repositories failed", failed, len(repos))
	}
	logger.Info("ingest complete", "repos", len(repos))
	return nil
}

// ingestRepo fetches, chunks, embeds, and stores one repository.
func ingestRepo(ctx context.Context, a *app.App, repo string, logger log.Logger) error {
	owner := a.Config.GitHubOwner

	paths, err := a.GitHub.FetchTree(ctx, owner, repo, "main")
	if err != nil {
		return fmt.Errorf("fetching tree: %w", err)
	}

	selected := knowledge.SelectFiles(paths)
	logger.Info("indexing repository", "repo", repo, "files", len(selected), "tree", len(paths))

	var docs []knowledge.Document
	for _, f := range selected {
		content, err := a.GitHub.FetchFile(ctx, owner, repo, f.Path)
		if err != nil {
			if errors.Is(err, github.ErrNotFound) {
				logger.Warn("file vanished between tree and fetch", "repo", repo, "path", f.Path)
				continue
			}
			return fmt.Errorf("fetching %s: %w", f.Path, err)
		}

		url := fmt.Sprintf("https://github.com/%s/%s/blob/main/%s", owner, repo, f.Path)
		for _, c := range knowledge.ChunkText(content) {
			docs = append(docs, knowledge.Document{
				Repo:       repo,
				Path:       f.Path,
				URL:        url,
				Type:       f.Type,
				ChunkIndex: c.Index,
				Content:    c.Content,
			})
		}
	}

	if err := embedDocuments(ctx, a, docs); err != nil {
		return err
	}

	deleted, err := a.Knowledge.DeleteRepo(ctx, repo)
	if err != nil {
		return fmt.Errorf("clearing old chunks: %w", err)
	}
	if err := a.Knowledge.Upsert(ctx, docs); err != nil {
		return fmt.Errorf("storing chunks: %w", err)
	}

	logger.Info("repository indexed", "repo", repo, "chunks", len(docs), "replaced", deleted)
	return nil
}

// embedDocuments fills the Embedding field of every document, batching
// requests to the embedding API.
func embedDocuments(ctx context.Context, a *app.App, docs []knowledge.Document) error {
	for start := 0; start < len(docs); start += embedBatchSize {
		end := min(start+embedBatchSize, len(docs))

		texts := make([]string, 0, end-start)
		for _, d := range docs[start:end] {
			texts = append(texts, d.Content)
		}

		vectors, err := a.Model.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch at %d: %w", start, err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embedding batch at %d: got %d vectors for %d texts", start, len(vectors), len(texts))
		}
		for i, v := range vectors {
			docs[start+i].Embedding = v
		}
	}
	return nil
}
