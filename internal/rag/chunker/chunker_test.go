package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunk_EmptyInput(t *testing.T) {
	chunks := Chunk("doc-1", "empty.txt", "", 100, 10, ".txt", StrategyRecursive)
	if len(chunks) != 0 {
		t.Errorf("Expected no chunks for empty input, got %d", len(chunks))
	}
}

func TestChunk_SmallTextSingleChunk(t *testing.T) {
	chunks := Chunk("doc-1", "small.txt", "tiny note", 100, 10, ".txt", StrategyRecursive)
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ChunkID != "doc-1-chunk-0" {
		t.Errorf("ChunkID got %s, want doc-1-chunk-0", chunks[0].ChunkID)
	}
	if chunks[0].Metadata.ChunkTotal != 1 || chunks[0].Metadata.ChunkIndex != 0 {
		t.Errorf("Metadata mismatch: %+v", chunks[0].Metadata)
	}
}

func TestChunk_OrdinalsAndTotals(t *testing.T) {
	text := strings.Repeat("Sentence one is here. ", 40)
	chunks := Chunk("doc-2", "long.txt", text, 120, 20, ".txt", StrategyRecursive)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Metadata.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, c.Metadata.ChunkIndex)
		}
		if c.Metadata.ChunkTotal != len(chunks) {
			t.Errorf("chunk %d has total %d, want %d", i, c.Metadata.ChunkTotal, len(chunks))
		}
		if c.Metadata.ContentLength != len(c.Content) {
			t.Errorf("chunk %d content length mismatch", i)
		}
	}
}

// Concatenating chunk contents in order must cover the source with no gaps -
// each chunk may only repeat the tail of its predecessor.
func TestChunk_CoverageWithOverlap(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta. ", 60)
	overlap := 30
	chunks := Chunk("doc-3", "cover.txt", text, 150, overlap, ".txt", StrategyRecursive)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}

	reconstructed := chunks[0].Content
	for i := 1; i < len(chunks); i++ {
		content := chunks[i].Content
		// Find the longest prefix of this chunk that is a suffix of what we
		// have so far, then append the remainder.
		joined := false
		for cut := min(len(content), overlap); cut >= 0; cut-- {
			if strings.HasSuffix(reconstructed, content[:cut]) {
				reconstructed += content[cut:]
				joined = true
				break
			}
		}
		if !joined {
			t.Fatalf("chunk %d does not continue the previous chunk", i)
		}
	}
	if reconstructed != text {
		t.Errorf("reconstructed text does not match source (got %d bytes, want %d)", len(reconstructed), len(text))
	}
}

func TestChunk_OverlapCappedAtContentLength(t *testing.T) {
	// Splits far smaller than the overlap must not loop or duplicate whole
	// chunks.
	text := strings.Repeat("ab ", 50)
	chunks := Chunk("doc-4", "short.txt", text, 10, 200, ".txt", StrategyRecursive)
	if len(chunks) == 0 {
		t.Fatal("Expected chunks")
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i] == chunks[i-1] {
			t.Errorf("chunk %d duplicates chunk %d entirely", i, i-1)
		}
	}
}

func TestChunk_NoSeparatorHardCut(t *testing.T) {
	text := strings.Repeat("x", 250)
	chunks := Chunk("doc-5", "blob.txt", text, 100, 10, ".txt", StrategyRecursive)
	if len(chunks) < 3 {
		t.Fatalf("Expected hard-cut chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len(c.Content) > 100 {
			t.Errorf("hard-cut chunk exceeds size: %d", len(c.Content))
		}
	}
}

// Non-ASCII text must never be cut inside a rune, neither by the overlap
// tail nor by the separator-free sliding window. A split rune would round
// trip through JSON as U+FFFD and corrupt the stored chunk.
func TestChunk_MultibyteTextKeepsRunesIntact(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "separated words", text: strings.Repeat("überraschungserfolg für die qualitätssicherung ", 30)},
		{name: "no separators", text: strings.Repeat("架构说明文档", 80)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chunks := Chunk("doc-7", "notes.txt", tc.text, 100, 30, ".txt", StrategyRecursive)
			if len(chunks) < 2 {
				t.Fatalf("Expected multiple chunks, got %d", len(chunks))
			}
			for i, c := range chunks {
				if !utf8.ValidString(c.Content) {
					t.Errorf("chunk %d contains a split rune: %q", i, c.Content)
				}
				if !strings.Contains(tc.text, c.Content) {
					t.Errorf("chunk %d is not a substring of the source", i)
				}
			}
		})
	}
}

func TestChunk_MarkdownSectionTitles(t *testing.T) {
	raw := "# A\n\nIntro paragraph under A.\n\n## B\n\nContent under B that belongs to the nested section.\n"
	chunks := Chunk("doc-md", "notes.md", raw, 500, 50, ".md", StrategyAuto)
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Metadata.SectionTitle != "A" {
		t.Errorf("first section title got %q, want %q", chunks[0].Metadata.SectionTitle, "A")
	}
	if chunks[1].Metadata.SectionTitle != "A > B" {
		t.Errorf("second section title got %q, want %q", chunks[1].Metadata.SectionTitle, "A > B")
	}
}

func TestChunk_MarkdownHeadingReset(t *testing.T) {
	raw := "# A\n\n## B\n\nunder b\n\n# C\n\nunder c\n"
	chunks := Chunk("doc-md", "notes.md", raw, 500, 50, ".md", StrategyMarkdown)
	var titles []string
	for _, c := range chunks {
		titles = append(titles, c.Metadata.SectionTitle)
	}
	want := []string{"A > B", "C"}
	if len(titles) != len(want) {
		t.Fatalf("titles got %v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("title %d got %q, want %q", i, titles[i], want[i])
		}
	}
}

func TestChunk_MarkdownWithoutHeadingsIsEmpty(t *testing.T) {
	raw := "Just a plain paragraph.\n\nAnd another one, no headings anywhere.\n"
	chunks := Chunk("doc-md", "plain.md", raw, 500, 50, ".md", StrategyAuto)
	if len(chunks) != 0 {
		t.Errorf("Expected empty result for heading-free markdown, got %d chunks", len(chunks))
	}
}

func TestChunk_MarkdownStrategyIgnoredForOtherExtensions(t *testing.T) {
	raw := "no headings here, plain text"
	chunks := Chunk("doc-6", "plain.txt", raw, 500, 50, ".txt", StrategyAuto)
	if len(chunks) != 1 {
		t.Errorf("auto strategy on .txt should fall back to recursive, got %d chunks", len(chunks))
	}
}
