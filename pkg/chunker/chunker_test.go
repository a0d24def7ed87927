package chunker

import (
	"reflect"
	"strings"
	"testing"
)

func TestChunk_EmptyInput(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty string", text: ""},
		{name: "whitespace only", text: "   \n\t  \r\n "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Chunk(tt.text, DefaultOptions())
			if len(chunks) != 0 {
				t.Errorf("Chunk() got %d chunks, want 0", len(chunks))
			}
		})
	}
}

func TestChunk_Normalization(t *testing.T) {
	chunks := Chunk("hello\n\n  world\tagain ", DefaultOptions())
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Content != "hello world again" {
		t.Errorf("content = %q, want %q", chunks[0].Content, "hello world again")
	}
	if chunks[0].Start != 0 || chunks[0].End != len("hello world again") {
		t.Errorf("offsets = [%d,%d), want [0,%d)", chunks[0].Start, chunks[0].End, len("hello world again"))
	}
}

func TestChunk_Deterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	opts := ChunkOptions{ChunkSize: 300, Overlap: 30}

	first := Chunk(text, opts)
	second := Chunk(text, opts)

	if !reflect.DeepEqual(first, second) {
		t.Error("repeated calls produced different chunk sequences")
	}
	if len(first) == 0 {
		t.Fatal("expected chunks for non-empty input")
	}
}

func TestChunk_ThreeChunksFor1200Chars(t *testing.T) {
	// 1200 characters with no break candidates: windows fall on raw edges.
	text := strings.Repeat("a", 1200)
	opts := ChunkOptions{ChunkSize: 500, Overlap: 50}

	chunks := Chunk(text, opts)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	for i, c := range chunks {
		if len(c.Content) > 500 {
			t.Errorf("chunk[%d] has %d chars, want <= 500", i, len(c.Content))
		}
		if c.Index != i {
			t.Errorf("chunk[%d].Index = %d", i, c.Index)
		}
		if i > 0 {
			overlap := chunks[i-1].End - c.Start
			if overlap < 0 || overlap > 50 {
				t.Errorf("chunk[%d] overlaps previous by %d chars, want 0..50", i, overlap)
			}
		}
	}
}

func TestChunk_PrefersSentenceBoundary(t *testing.T) {
	text := "Hello world. " + strings.Repeat("x", 600)
	chunks := Chunk(text, ChunkOptions{ChunkSize: 500, Overlap: 50})

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want >= 2", len(chunks))
	}
	if chunks[0].Content != "Hello world." {
		t.Errorf("chunk[0] = %q, want break after the sentence terminator", chunks[0].Content)
	}
	// The short first chunk means the overlap step cannot advance; the
	// next window must start at the previous end instead of looping.
	if chunks[1].Start != chunks[0].End {
		t.Errorf("chunk[1].Start = %d, want %d (forced advance)", chunks[1].Start, chunks[0].End)
	}
}

func TestChunk_WordBoundaryBackoff(t *testing.T) {
	text := strings.Repeat("word ", 240) // 1199 chars once normalized
	chunks := Chunk(text, ChunkOptions{ChunkSize: 500, Overlap: 50})

	for i, c := range chunks {
		if strings.HasSuffix(c.Content, " ") {
			t.Errorf("chunk[%d] content has trailing space", i)
		}
		if i < len(chunks)-1 && !strings.HasSuffix(c.Content, "word") {
			t.Errorf("chunk[%d] = %q..., want chunk to end on a word", i, c.Content[len(c.Content)-10:])
		}
	}
}

func TestChunk_DegenerateOverlapTerminates(t *testing.T) {
	tests := []struct {
		name string
		opts ChunkOptions
	}{
		{name: "overlap equals chunk size", opts: ChunkOptions{ChunkSize: 50, Overlap: 50}},
		{name: "overlap exceeds chunk size", opts: ChunkOptions{ChunkSize: 50, Overlap: 80}},
	}

	text := strings.Repeat("ab ", 100)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Chunk(text, tt.opts)
			if len(chunks) == 0 {
				t.Fatal("expected chunks for non-empty input")
			}
			for i := 1; i < len(chunks); i++ {
				if chunks[i].Start <= chunks[i-1].Start {
					t.Errorf("chunk[%d].Start = %d did not advance past %d", i, chunks[i].Start, chunks[i-1].Start)
				}
			}
		})
	}
}

func TestChunk_OffsetsCoverNormalizedText(t *testing.T) {
	text := strings.Repeat("Some sentences here. More follow after that. ", 30)
	clean := Normalize(text)
	chunks := Chunk(text, ChunkOptions{ChunkSize: 200, Overlap: 20})

	if chunks[0].Start != 0 {
		t.Errorf("first chunk starts at %d, want 0", chunks[0].Start)
	}
	if last := chunks[len(chunks)-1]; last.End != len(clean) {
		t.Errorf("last chunk ends at %d, want %d", last.End, len(clean))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Start > chunks[i-1].End {
			t.Errorf("gap between chunk[%d] (ends %d) and chunk[%d] (starts %d)",
				i-1, chunks[i-1].End, i, chunks[i].Start)
		}
	}
}

func TestChunk_ContentMatchesOffsets(t *testing.T) {
	text := strings.Repeat("Alpha beta gamma delta. ", 40)
	clean := []rune(Normalize(text))
	chunks := Chunk(text, ChunkOptions{ChunkSize: 150, Overlap: 25})

	for i, c := range chunks {
		want := strings.TrimSpace(string(clean[c.Start:c.End]))
		if c.Content != want {
			t.Errorf("chunk[%d].Content does not match its offsets into the normalized text", i)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{text: "", want: 1},
		{text: "abcd", want: 1},
		{text: "abcde", want: 2},
		{text: strings.Repeat("a", 400), want: 100},
	}

	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%d chars) = %d, want %d", len(tt.text), got, tt.want)
		}
	}
}
