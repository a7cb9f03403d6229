package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/salmanfarse/folio/internal/github"
	"github.com/salmanfarse/folio/internal/retrieval"
)

// defaultBranch is assumed when reading repository trees.
const defaultBranch = "main"

// SourceHost is the source-hosting collaborator the GitHub-backed
// tools call.
type SourceHost interface {
	FetchTree(ctx context.Context, owner, repo, branch string) ([]string, error)
	FetchFile(ctx context.Context, owner, repo, path string) (string, error)
	FetchReadme(ctx context.Context, owner, repo string) (string, error)
}

// ReadFileInput is the argument object for the read_file tool.
type ReadFileInput struct {
	Repo string `json:"repo" jsonschema_description:"The repository name (e.g., 'chess-engine')"`
	Path string `json:"path" jsonschema_description:"The file path inside the repository (e.g., 'src/index.ts')"`
}

// RepoStructureInput is the argument object for the repo_structure tool.
type RepoStructureInput struct {
	Repo string `json:"repo" jsonschema_description:"The repository name to summarize"`
}

// RepoSummary is the cached readme+tree digest behind repo_structure.
type RepoSummary struct {
	Readme string
	Paths  []string
}

// NewReadFile builds the read_file tool for one repository owner.
func NewReadFile(host SourceHost, owner string) (Tool, error) {
	schema, err := jsonschema.For[ReadFileInput](nil)
	if err != nil {
		return Tool{}, fmt.Errorf("schema for read_file: %w", err)
	}

	return Tool{
		Name:        "read_file",
		Description: "Read the content of one file from a portfolio project repository.",
		Schema:      schema,
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var input ReadFileInput
			if err := json.Unmarshal(args, &input); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if input.Repo == "" || input.Path == "" {
				return "", errors.New("both repo and path are required")
			}

			content, err := host.FetchFile(ctx, owner, input.Repo, input.Path)
			if errors.Is(err, github.ErrNotFound) {
				return fmt.Sprintf("File %s does not exist in %s.", input.Path, input.Repo), nil
			}
			if err != nil {
				return "", err
			}
			return content, nil
		},
	}, nil
}

// NewRepoStructure builds the repo_structure tool. Summaries are
// served through the shared cache so repeated questions about one
// repository cost a single round trip per TTL window.
func NewRepoStructure(host SourceHost, owner string, cache *retrieval.Cache[RepoSummary]) (Tool, error) {
	schema, err := jsonschema.For[RepoStructureInput](nil)
	if err != nil {
		return Tool{}, fmt.Errorf("schema for repo_structure: %w", err)
	}

	return Tool{
		Name:        "repo_structure",
		Description: "Get the readme and file tree of a portfolio project repository.",
		Schema:      schema,
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var input RepoStructureInput
			if err := json.Unmarshal(args, &input); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if input.Repo == "" {
				return "", errors.New("repo is required")
			}

			key := fmt.Sprintf("repo-summary-%s-%s", owner, input.Repo)
			summary, err := cache.GetOrFetch(ctx, key, func(ctx context.Context) (RepoSummary, error) {
				return fetchRepoSummary(ctx, host, owner, input.Repo)
			})
			if errors.Is(err, github.ErrNotFound) {
				return fmt.Sprintf("Repository %s was not found.", input.Repo), nil
			}
			if err != nil {
				return "", err
			}
			return formatRepoSummary(input.Repo, summary), nil
		},
	}, nil
}

// fetchRepoSummary pulls both halves of the digest. A missing readme
// is fine; a missing tree means the repository itself is missing.
func fetchRepoSummary(ctx context.Context, host SourceHost, owner, repo string) (RepoSummary, error) {
	paths, err := host.FetchTree(ctx, owner, repo, defaultBranch)
	if err != nil {
		return RepoSummary{}, err
	}

	readme, err := host.FetchReadme(ctx, owner, repo)
	if err != nil && !errors.Is(err, github.ErrNotFound) {
		return RepoSummary{}, err
	}

	return RepoSummary{Readme: readme, Paths: paths}, nil
}

func formatRepoSummary(repo string, s RepoSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n\n", repo)
	if s.Readme != "" {
		fmt.Fprintf(&b, "README:\n%s\n\n", s.Readme)
	}
	fmt.Fprintf(&b, "Files (%d):\n", len(s.Paths))
	for _, p := range s.Paths {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return b.String()
}
