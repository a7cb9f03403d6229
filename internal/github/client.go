// Package github is the source-hosting collaborator: it fetches
// repository trees, file contents, and readmes from the GitHub REST
// API. Fetches go through the shared retry policy; a missing path is
// the sentinel ErrNotFound, not a transport error.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/salmanfarse/folio/internal/log"
	"github.com/salmanfarse/folio/internal/model"
)

const (
	defaultBaseURL = "https://api.github.com"

	// maxFileBytes bounds a single fetched file. GitHub's contents API
	// caps raw responses well below this; the limit guards against a
	// misbehaving proxy.
	maxFileBytes = 1 << 20
)

// ErrNotFound indicates the requested repo, path, or readme does not
// exist. Callers treat this as "no content", not a failure.
var ErrNotFound = errors.New("github: not found")

// Client talks to the GitHub REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	retry   model.RetryConfig
	logger  log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host. Tests use
// this with httptest.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg model.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// NewClient creates a GitHub client. An empty token makes
// unauthenticated requests, which works for public repos at a lower
// rate limit.
func NewClient(token string, logger log.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = log.NewNop()
	}
	c := &Client{
		baseURL: defaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		retry:   model.DefaultRetryConfig(),
		logger:  logger.With("component", "github"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// treeResponse mirrors the git trees API payload.
type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

// FetchTree returns the file paths of a repository branch, recursively.
// Directories are excluded; only blobs are listed.
func (c *Client) FetchTree(ctx context.Context, owner, repo, branch string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(branch))

	body, err := c.get(ctx, endpoint, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}

	var tree treeResponse
	if err := json.Unmarshal(body, &tree); err != nil {
		return nil, fmt.Errorf("decode tree for %s/%s: %w", owner, repo, err)
	}
	if tree.Truncated {
		c.logger.Warn("repository tree truncated by the API", "owner", owner, "repo", repo)
	}

	paths := make([]string, 0, len(tree.Tree))
	for _, entry := range tree.Tree {
		if entry.Type == "blob" {
			paths = append(paths, entry.Path)
		}
	}
	return paths, nil
}

// FetchFile returns the raw content of one file.
func (c *Client) FetchFile(ctx context.Context, owner, repo, path string) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), escapePath(path))

	body, err := c.get(ctx, endpoint, "application/vnd.github.raw+json")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchReadme returns the repository's preferred readme as raw text.
func (c *Client) FetchReadme(ctx context.Context, owner, repo string) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/readme",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo))

	body, err := c.get(ctx, endpoint, "application/vnd.github.raw+json")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// get performs one authenticated GET with retries. 404 maps to
// ErrNotFound without retrying; 5xx and 429 are retried.
func (c *Client) get(ctx context.Context, endpoint, accept string) ([]byte, error) {
	return model.Retry(ctx, c.retry, nil, c.logger, "github get",
		func(ctx context.Context) ([]byte, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return nil, fmt.Errorf("build request: %w", err)
			}
			req.Header.Set("Accept", accept)
			req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
			if c.token != "" {
				req.Header.Set("Authorization", "Bearer "+c.token)
			}

			resp, err := c.http.Do(req)
			if err != nil {
				return nil, fmt.Errorf("github request: %w", err)
			}
			defer func() { _ = resp.Body.Close() }()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return nil, ErrNotFound
			case resp.StatusCode != http.StatusOK:
				return nil, fmt.Errorf("github responded %d for %s", resp.StatusCode, endpoint)
			}

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxFileBytes))
			if err != nil {
				return nil, fmt.Errorf("read response: %w", err)
			}
			return body, nil
		})
}

// escapePath escapes each segment of a slash-separated repo path while
// keeping the separators.
func escapePath(path string) string {
	segs := strings.Split(path, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}
