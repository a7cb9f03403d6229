package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/salmanfarse/folio/internal/github"
	"github.com/salmanfarse/folio/internal/log"
	"github.com/salmanfarse/folio/internal/retrieval"
)

type stubHost struct {
	files      map[string]string
	readme     string
	tree       []string
	treeCalls  atomic.Int32
	treeErr    error
	readmeErr  error
	lastOwner  string
	lastBranch string
}

func (s *stubHost) FetchTree(_ context.Context, owner, repo, branch string) ([]string, error) {
	s.treeCalls.Add(1)
	s.lastOwner = owner
	s.lastBranch = branch
	if s.treeErr != nil {
		return nil, s.treeErr
	}
	return s.tree, nil
}

func (s *stubHost) FetchFile(_ context.Context, owner, repo, path string) (string, error) {
	s.lastOwner = owner
	content, ok := s.files[repo+"/"+path]
	if !ok {
		return "", github.ErrNotFound
	}
	return content, nil
}

func (s *stubHost) FetchReadme(_ context.Context, owner, repo string) (string, error) {
	if s.readmeErr != nil {
		return "", s.readmeErr
	}
	return s.readme, nil
}

func TestReadFile(t *testing.T) {
	host := &stubHost{files: map[string]string{
		"chess-engine/src/board.ts": "export class Board {}",
	}}
	tool, err := NewReadFile(host, "salmanfarse")
	if err != nil {
		t.Fatalf("NewReadFile() error: %v", err)
	}

	got, err := tool.Run(context.Background(), json.RawMessage(`{"repo":"chess-engine","path":"src/board.ts"}`))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got != "export class Board {}" {
		t.Errorf("Run() = %q, want file content", got)
	}
	if host.lastOwner != "salmanfarse" {
		t.Errorf("owner = %q, want salmanfarse", host.lastOwner)
	}
}

func TestReadFile_NotFound(t *testing.T) {
	tool, err := NewReadFile(&stubHost{}, "salmanfarse")
	if err != nil {
		t.Fatalf("NewReadFile() error: %v", err)
	}

	got, err := tool.Run(context.Background(), json.RawMessage(`{"repo":"chess-engine","path":"missing.ts"}`))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(got, "does not exist") {
		t.Errorf("Run() = %q, want a missing-file explanation", got)
	}
}

func TestReadFile_MissingArguments(t *testing.T) {
	tool, err := NewReadFile(&stubHost{}, "salmanfarse")
	if err != nil {
		t.Fatalf("NewReadFile() error: %v", err)
	}

	if _, err := tool.Run(context.Background(), json.RawMessage(`{"repo":"chess-engine"}`)); err == nil {
		t.Error("Run() without path: expected error")
	}
}

func TestRepoStructure(t *testing.T) {
	host := &stubHost{
		readme: "# Chess Engine",
		tree:   []string{"README.md", "src/board.ts", "src/engine.ts"},
	}
	cache := retrieval.NewCache[RepoSummary](log.NewNop())
	tool, err := NewRepoStructure(host, "salmanfarse", cache)
	if err != nil {
		t.Fatalf("NewRepoStructure() error: %v", err)
	}

	args := json.RawMessage(`{"repo":"chess-engine"}`)
	got, err := tool.Run(context.Background(), args)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	for _, want := range []string{"Repository: chess-engine", "# Chess Engine", "src/board.ts", "Files (3):"} {
		if !strings.Contains(got, want) {
			t.Errorf("Run() output missing %q", want)
		}
	}
	if host.lastBranch != "main" {
		t.Errorf("branch = %q, want main", host.lastBranch)
	}

	// Second call is served from cache.
	if _, err := tool.Run(context.Background(), args); err != nil {
		t.Fatalf("Run() second call error: %v", err)
	}
	if got := host.treeCalls.Load(); got != 1 {
		t.Errorf("tree fetched %d times, want 1", got)
	}
}

func TestRepoStructure_RepoMissing(t *testing.T) {
	host := &stubHost{treeErr: github.ErrNotFound}
	tool, err := NewRepoStructure(host, "salmanfarse", retrieval.NewCache[RepoSummary](log.NewNop()))
	if err != nil {
		t.Fatalf("NewRepoStructure() error: %v", err)
	}

	got, err := tool.Run(context.Background(), json.RawMessage(`{"repo":"ghost"}`))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(got, "not found") {
		t.Errorf("Run() = %q, want a not-found explanation", got)
	}
}

func TestRepoStructure_ReadmeOptional(t *testing.T) {
	host := &stubHost{
		readmeErr: github.ErrNotFound,
		tree:      []string{"main.go"},
	}
	tool, err := NewRepoStructure(host, "salmanfarse", retrieval.NewCache[RepoSummary](log.NewNop()))
	if err != nil {
		t.Fatalf("NewRepoStructure() error: %v", err)
	}

	got, err := tool.Run(context.Background(), json.RawMessage(`{"repo":"tool"}`))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if strings.Contains(got, "README:") {
		t.Errorf("Run() = %q, want no README section", got)
	}
	if !strings.Contains(got, "main.go") {
		t.Errorf("Run() = %q, want file list", got)
	}
}

func TestRepoStructure_OtherReadmeErrorFails(t *testing.T) {
	host := &stubHost{
		readmeErr: fmt.Errorf("server error"),
		tree:      []string{"main.go"},
	}
	tool, err := NewRepoStructure(host, "salmanfarse", retrieval.NewCache[RepoSummary](log.NewNop()))
	if err != nil {
		t.Fatalf("NewRepoStructure() error: %v", err)
	}

	if _, err := tool.Run(context.Background(), json.RawMessage(`{"repo":"tool"}`)); err == nil {
		t.Error("Run() with failing readme fetch: expected error")
	}
}
