package knowledge

import "strings"

const (
	chunkSize    = 1500
	chunkOverlap = 200

	// minChunkLen filters fragments too small to be worth embedding.
	minChunkLen = 50
)

// Chunk is one piece of a split file, before embedding.
type Chunk struct {
	Content string
	Index   int
}

// cleanText strips bytes that confuse embedding models: NULs, CR, and
// non-ASCII noise from binary-ish files.
func cleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ReplaceAll(text, "\r\n", "\n") {
		if r == '\n' || r == '\t' || (r >= 0x20 && r <= 0x7e) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// ChunkText splits content into overlapping chunks, breaking at the
// last newline (preferred) or space inside the tail fifth of the
// window so chunks end on natural boundaries.
func ChunkText(content string) []Chunk {
	cleaned := cleanText(content)
	var chunks []Chunk

	start := 0
	index := 0
	for start < len(cleaned) {
		end := start + chunkSize
		last := end >= len(cleaned)
		if last {
			end = len(cleaned)
		} else {
			window := cleaned[:end]
			if nl := strings.LastIndexByte(window, '\n'); nl > start+chunkSize*8/10 {
				end = nl
			} else if sp := strings.LastIndexByte(window, ' '); sp > start+chunkSize*8/10 {
				end = sp
			}
		}

		piece := strings.TrimSpace(cleaned[start:end])
		if len(piece) > minChunkLen {
			chunks = append(chunks, Chunk{Content: piece, Index: index})
			index++
		}
		if last {
			break
		}

		next := end - chunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}
