// Package chunker splits extracted document text into overlapping,
// boundary-aware chunks for embedding. Chunking is deterministic: the same
// text and options always produce the same chunk sequence.
package chunker

import "strings"

type ChunkOptions struct {
	ChunkSize int // target chunk size in characters
	Overlap   int // character overlap between consecutive chunks
}

func DefaultOptions() ChunkOptions {
	return ChunkOptions{
		ChunkSize: 500,
		Overlap:   50,
	}
}

// TextChunk is one contiguous piece of the normalized text. Start and End are
// character offsets into the normalized text, not the original input.
type TextChunk struct {
	Content string
	Index   int
	Start   int
	End     int
}

// Normalize collapses whitespace runs to a single space and trims the ends.
// All chunk offsets are relative to this form of the text.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Chunk splits text into overlapping chunks of at most ChunkSize characters.
// Each window prefers to end at the furthest-right sentence terminator,
// newline, or space before its edge; if none falls after the window start,
// the raw edge is used. Empty input yields no chunks.
func Chunk(text string, opts ChunkOptions) []TextChunk {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultOptions().ChunkSize
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}

	clean := []rune(Normalize(text))
	if len(clean) == 0 {
		return nil
	}

	var chunks []TextChunk
	start := 0
	index := 0

	for start < len(clean) {
		end := start + opts.ChunkSize
		if end > len(clean) {
			end = len(clean)
		}

		chunkEnd := end
		if end < len(clean) {
			if bp := breakPoint(clean, start, end); bp > start {
				chunkEnd = bp + 1
			}
		}

		content := strings.TrimSpace(string(clean[start:chunkEnd]))
		if content != "" {
			chunks = append(chunks, TextChunk{
				Content: content,
				Index:   index,
				Start:   start,
				End:     chunkEnd,
			})
			index++
		}

		// The last window runs to the end of the text; re-entering the
		// loop would only emit the overlap tail again.
		if chunkEnd >= len(clean) {
			break
		}

		next := chunkEnd - opts.Overlap

		// Guarantee forward progress when overlap swallows the whole
		// chunk (overlap >= chunk length, a degenerate configuration).
		if next <= start {
			next = chunkEnd
		}
		if n := len(chunks); n > 0 && next <= chunks[n-1].Start {
			next = chunkEnd
		}
		start = next
	}

	return chunks
}

// breakPoint returns the furthest-right position in clean[:end+1] holding a
// sentence terminator, newline, or space, or -1 if there is none.
func breakPoint(clean []rune, start, end int) int {
	for i := end; i > start; i-- {
		switch clean[i-1] {
		case '.', '\n', ' ':
			return i - 1
		}
	}
	return -1
}

// EstimateTokens gives a rough token count for budget checks: on average one
// token is about four characters of English text.
func EstimateTokens(text string) int {
	n := (len(text) + 3) / 4
	if n < 1 {
		n = 1
	}
	return n
}
