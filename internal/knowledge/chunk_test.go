package knowledge

import (
	"strings"
	"testing"
)

func TestChunkText_ShortContent(t *testing.T) {
	chunks := ChunkText("package main\n\nfunc main() {\n\tprintln(\"hello\")\n}\n")
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	if chunks[0].Index != 0 {
		t.Errorf("index = %d, want 0", chunks[0].Index)
	}
}

func TestChunkText_TinyContentFiltered(t *testing.T) {
	if chunks := ChunkText("short"); len(chunks) != 0 {
		t.Errorf("len(chunks) = %d for tiny content, want 0", len(chunks))
	}
}

func TestChunkText_SplitsWithOverlap(t *testing.T) {
	// Lines of 80 chars force newline break points.
	line := strings.Repeat("x", 79) + "\n"
	content := strings.Repeat(line, 60) // 4800 chars

	chunks := ChunkText(content)
	if len(chunks) < 3 {
		t.Fatalf("len(chunks) = %d, want >= 3", len(chunks))
	}

	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunks[%d].Index = %d", i, c.Index)
		}
		if len(c.Content) > chunkSize {
			t.Errorf("chunks[%d] length %d exceeds chunk size", i, len(c.Content))
		}
	}

	// Overlap: the head of chunk 1 repeats the tail of chunk 0.
	tail := chunks[0].Content[len(chunks[0].Content)-50:]
	if !strings.Contains(chunks[1].Content[:300], strings.TrimSpace(tail)) {
		t.Error("consecutive chunks do not overlap")
	}
}

func TestChunkText_CleansBinaryNoise(t *testing.T) {
	content := "real code here, long enough to keep around for the test\x00\x00" +
		strings.Repeat("b", 60) + "\r\nnext line"
	chunks := ChunkText(content)
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	if strings.ContainsRune(chunks[0].Content, 0) {
		t.Error("NUL byte survived cleaning")
	}
	if strings.Contains(chunks[0].Content, "\r") {
		t.Error("CR survived cleaning")
	}
}

func TestSelectFiles(t *testing.T) {
	paths := []string{
		"README.md",
		"package.json",
		"src/index.ts",
		"src/components/App.tsx",
		"lib/utils.js",
		"internal/engine/search.go",
		"docs/architecture.md",
		"node_modules/react/index.js",
		"public/images/logo.png",
		"next.config.js",
		"dist/bundle.min.js",
		"main.test.ts",
	}

	selected := SelectFiles(paths)

	byPath := make(map[string]SelectedFile, len(selected))
	for _, f := range selected {
		byPath[f.Path] = f
	}

	if f, ok := byPath["README.md"]; !ok || f.Priority != PriorityHigh || f.Type != "readme" {
		t.Errorf("README.md = %+v, want high/readme", f)
	}
	if f, ok := byPath["package.json"]; !ok || f.Priority != PriorityHigh {
		t.Errorf("package.json = %+v, want high priority", f)
	}
	if f, ok := byPath["src/index.ts"]; !ok || f.Priority != PriorityMedium || f.Type != "code" {
		t.Errorf("src/index.ts = %+v, want medium/code", f)
	}
	if f, ok := byPath["internal/engine/search.go"]; !ok || f.Type != "code" {
		t.Errorf("internal/engine/search.go = %+v, want code", f)
	}
	if f, ok := byPath["docs/architecture.md"]; !ok || f.Priority != PriorityLow || f.Type != "docs" {
		t.Errorf("docs/architecture.md = %+v, want low/docs", f)
	}

	for _, excluded := range []string{"node_modules/react/index.js", "public/images/logo.png", "dist/bundle.min.js", "main.test.ts"} {
		if _, ok := byPath[excluded]; ok {
			t.Errorf("%s selected, want excluded", excluded)
		}
	}

	// High priority entries sort before the rest.
	if selected[0].Priority != PriorityHigh {
		t.Errorf("first selection priority = %d, want high", selected[0].Priority)
	}
}

func TestSelectFiles_Cap(t *testing.T) {
	var paths []string
	for i := range 200 {
		paths = append(paths, "src/file"+strings.Repeat("x", i%5)+".ts")
	}
	paths = append(paths, "README.md")

	selected := SelectFiles(paths)
	if len(selected) > maxFilesPerRepo {
		t.Errorf("len(selected) = %d, want <= %d", len(selected), maxFilesPerRepo)
	}
	if selected[0].Path != "README.md" {
		t.Errorf("selected[0] = %q, want README.md first", selected[0].Path)
	}
}
