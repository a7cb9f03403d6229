package knowledge

import (
	"sort"
	"strings"
)

// Priority orders files for ingest when a repository has more indexable
// files than the per-repo cap.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
)

// SelectedFile is one file chosen for indexing.
type SelectedFile struct {
	Path     string
	Priority Priority
	Type     string // readme | config | code | docs
}

// maxFilesPerRepo caps indexing to keep embedding cost bounded.
const maxFilesPerRepo = 50

var ignorePatterns = []string{
	"node_modules",
	"dist",
	"build",
	".git",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	".DS_Store",
	".env",
	".next",
	"coverage",
	"test",
	"__tests__",
	"public/images",
	"public/fonts",
	"vendor",
}

var ignoreExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".ico", ".svg",
	".mp4", ".mov", ".avi",
	".pdf", ".zip", ".tar", ".gz",
	".map", ".min.js", ".min.css",
}

var codeExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".go", ".py", ".rs"}

// SelectFiles filters and prioritizes a repository tree for indexing:
// readme and dependency manifests first, then source under src/, app/,
// lib/, internal/ or cmd/, then root config files, then other
// markdown. At most maxFilesPerRepo files survive, highest priority
// first with tree order as the tiebreaker.
func SelectFiles(paths []string) []SelectedFile {
	var selected []SelectedFile

	for _, path := range paths {
		if ignored(path) {
			continue
		}
		lower := strings.ToLower(path)

		switch {
		case lower == "readme.md":
			selected = append(selected, SelectedFile{path, PriorityHigh, "readme"})
		case lower == "package.json" || lower == "go.mod" || lower == "cargo.toml":
			selected = append(selected, SelectedFile{path, PriorityHigh, "config"})
		case inSourceDir(lower) && hasAnySuffix(path, codeExtensions):
			selected = append(selected, SelectedFile{path, PriorityMedium, "code"})
		case strings.Contains(path, "config") && hasAnySuffix(path, []string{".ts", ".js", ".json", ".yaml", ".yml"}):
			selected = append(selected, SelectedFile{path, PriorityMedium, "config"})
		case strings.HasSuffix(path, ".md"):
			selected = append(selected, SelectedFile{path, PriorityLow, "docs"})
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Priority > selected[j].Priority
	})
	if len(selected) > maxFilesPerRepo {
		selected = selected[:maxFilesPerRepo]
	}
	return selected
}

func ignored(path string) bool {
	for _, pattern := range ignorePatterns {
		if strings.Contains(path, pattern) {
			return true
		}
	}
	for _, ext := range ignoreExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func inSourceDir(lower string) bool {
	for _, prefix := range []string{"src/", "app/", "lib/", "internal/", "cmd/"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
