// Package retrieval turns a user query into the retrieved-context block
// for the system prompt. It owns the content-addressed cache around the
// embed+search round trip, the context block formatting, and the
// citation list returned to the client.
package retrieval

import (
	"fmt"
	"strings"
)

// NoContextFound is the explicit context-block value when retrieval
// produced nothing. The prompt always carries this string rather than
// an empty section, so the model never mistakes absent context for an
// instruction.
const NoContextFound = "no relevant context found"

// Chunk is one ranked similarity-search result.
type Chunk struct {
	Content string  `json:"content"`
	Repo    string  `json:"repo"`
	Path    string  `json:"path"`
	URL     string  `json:"url"`
	Type    string  `json:"type"`
	Score   float64 `json:"score"`
}

// Citation is the client-facing source reference for one chunk.
type Citation struct {
	Repo string `json:"repo"`
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Citations extracts the source references from ranked chunks,
// preserving rank order and dropping duplicate files.
func Citations(chunks []Chunk) []Citation {
	seen := make(map[string]bool, len(chunks))
	out := make([]Citation, 0, len(chunks))
	for _, c := range chunks {
		key := c.Repo + "/" + c.Path
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Citation{Repo: c.Repo, Path: c.Path, URL: c.URL})
	}
	return out
}

// ContextBlock renders chunks into the delimited text block injected
// into the system prompt. Returns NoContextFound for an empty list.
func ContextBlock(chunks []Chunk) string {
	if len(chunks) == 0 {
		return NoContextFound
	}

	var b strings.Builder
	for _, c := range chunks {
		fmt.Fprintf(&b, "---\nFile: %s/%s\nURL: %s\nType: %s\nContent:\n%s\n---\n",
			c.Repo, c.Path, c.URL, c.Type, c.Content)
	}
	return b.String()
}
