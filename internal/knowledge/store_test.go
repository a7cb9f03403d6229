package knowledge_test

import (
	"context"
	"testing"

	"github.com/salmanfarse/folio/internal/knowledge"
	"github.com/salmanfarse/folio/internal/log"
	"github.com/salmanfarse/folio/internal/testutil"
)

// vec builds a 1536-dimension unit-ish vector dominated by one axis,
// so cosine distance between different axes is large and stable.
func vec(axis int) []float32 {
	v := make([]float32, 1536)
	v[axis%1536] = 1
	return v
}

func seedDocs(t *testing.T, store *knowledge.Store) {
	t.Helper()
	docs := []knowledge.Document{
		{Repo: "chess-engine", Path: "main.go", URL: "https://github.com/me/chess-engine/blob/main/main.go", Type: "code", ChunkIndex: 0, Content: "package main", Embedding: vec(0)},
		{Repo: "chess-engine", Path: "engine.go", URL: "https://github.com/me/chess-engine/blob/main/engine.go", Type: "code", ChunkIndex: 0, Content: "func Search()", Embedding: vec(1)},
		{Repo: "portfolio", Path: "README.md", URL: "https://github.com/me/portfolio/blob/main/README.md", Type: "readme", ChunkIndex: 0, Content: "# Portfolio", Embedding: vec(2)},
	}
	if err := store.Upsert(context.Background(), docs); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
}

func TestStore_SearchNearestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := knowledge.New(db.Pool, log.NewNop())
	seedDocs(t, store)

	chunks, err := store.Search(context.Background(), vec(1), 2, "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Search() returned %d chunks, want 2", len(chunks))
	}
	if chunks[0].Path != "engine.go" {
		t.Errorf("nearest chunk = %q, want engine.go", chunks[0].Path)
	}
	if chunks[0].Score <= chunks[1].Score {
		t.Errorf("scores not descending: %v then %v", chunks[0].Score, chunks[1].Score)
	}
}

func TestStore_SearchRepoFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := knowledge.New(db.Pool, log.NewNop())
	seedDocs(t, store)

	chunks, err := store.Search(context.Background(), vec(0), 10, "portfolio")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for _, c := range chunks {
		if c.Repo != "portfolio" {
			t.Errorf("filtered search returned chunk from %q", c.Repo)
		}
	}
	if len(chunks) != 1 {
		t.Errorf("Search() returned %d chunks, want 1", len(chunks))
	}
}

func TestStore_UpsertOverwrites(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := knowledge.New(db.Pool, log.NewNop())
	ctx := context.Background()
	seedDocs(t, store)

	updated := []knowledge.Document{{
		Repo: "chess-engine", Path: "main.go", Type: "code", ChunkIndex: 0,
		Content: "package main // v2", Embedding: vec(0),
	}}
	if err := store.Upsert(ctx, updated); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	n, err := store.Count(ctx, "chess-engine")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d after overwrite, want 2", n)
	}

	chunks, err := store.Search(ctx, vec(0), 1, "chess-engine")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if chunks[0].Content != "package main // v2" {
		t.Errorf("content = %q, want overwritten version", chunks[0].Content)
	}
}

func TestStore_DeleteRepo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := knowledge.New(db.Pool, log.NewNop())
	ctx := context.Background()
	seedDocs(t, store)

	deleted, err := store.DeleteRepo(ctx, "chess-engine")
	if err != nil {
		t.Fatalf("DeleteRepo() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("DeleteRepo() = %d, want 2", deleted)
	}

	n, err := store.Count(ctx, "chess-engine")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() after delete = %d, want 0", n)
	}

	// Other repositories untouched.
	n, _ = store.Count(ctx, "portfolio")
	if n != 1 {
		t.Errorf("portfolio count = %d, want 1", n)
	}
}
