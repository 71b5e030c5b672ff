package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/CompassAPI/internal/domain/ragModel"
)

// Separators ordered from "best" to "worst" for semantic meaning. The
// splitter uses the earliest one present in the text and falls through to the
// later ones only for pieces that are still too large.
var defaultSeparators = []string{"\n\n", "\n", ". ", " "}

const (
	StrategyRecursive = "recursive"
	StrategyMarkdown  = "markdown"
	StrategyAuto      = "auto"
)

// Chunk splits raw document text into ordered chunks with stable ids of the
// form <documentID>-chunk-<ordinal>. Markdown files get heading-aware
// segmentation first when the strategy allows it; a markdown file without
// headings yields no chunks at all rather than silently degrading to the
// recursive strategy.
func Chunk(documentID, filename, rawText string, chunkSize, chunkOverlap int, sourceExtension, strategy string) []ragModel.Chunk {
	if strings.TrimSpace(rawText) == "" {
		return nil
	}
	strategy = strings.ToLower(strings.TrimSpace(strategy))
	if strategy == "" {
		strategy = StrategyRecursive
	}
	sourceExtension = strings.ToLower(sourceExtension)

	type piece struct {
		text         string
		sectionTitle string
	}
	var pieces []piece

	if (strategy == StrategyMarkdown || strategy == StrategyAuto) && sourceExtension == ".md" {
		segments := markdownSegments(rawText)
		if len(segments) == 0 {
			return nil
		}
		for _, segment := range segments {
			for _, text := range splitRecursive(segment.text, defaultSeparators, chunkSize, chunkOverlap) {
				pieces = append(pieces, piece{text: text, sectionTitle: segment.title()})
			}
		}
	} else {
		for _, text := range splitRecursive(rawText, defaultSeparators, chunkSize, chunkOverlap) {
			pieces = append(pieces, piece{text: text})
		}
	}

	total := len(pieces)
	chunks := make([]ragModel.Chunk, 0, total)
	for idx, p := range pieces {
		chunks = append(chunks, ragModel.Chunk{
			ChunkID: fmt.Sprintf("%s-chunk-%d", documentID, idx),
			Content: p.text,
			Metadata: ragModel.ChunkMetadata{
				DocumentID:      documentID,
				Filename:        filename,
				ChunkIndex:      idx,
				ChunkTotal:      total,
				ContentLength:   len(p.text),
				ChunkStrategy:   strategy,
				SourceExtension: sourceExtension,
				SectionTitle:    p.sectionTitle,
			},
		})
	}
	return chunks
}

// splitRecursive splits on the first listed separator found in the text,
// recursing into the remaining separators for any split that is still over
// the size limit, then merges splits back into chunks that overlap by
// chunkOverlap characters of the previous chunk's tail.
func splitRecursive(text string, separators []string, chunkSize, chunkOverlap int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= chunkSize {
		return []string{text}
	}

	separator := ""
	var remaining []string
	for i, s := range separators {
		if strings.Contains(text, s) {
			separator = s
			remaining = separators[i+1:]
			break
		}
	}
	if separator == "" {
		return hardCut(text, chunkSize, chunkOverlap)
	}

	// SplitAfter keeps the separator attached so concatenating splits
	// reconstructs the input exactly. Oversized splits recurse into the
	// remaining separators and land as finished chunks; everything else is
	// merged greedily.
	var chunks []string
	var pending []string
	flushPending := func() {
		chunks = append(chunks, mergeSplits(pending, chunkSize, chunkOverlap)...)
		pending = nil
	}
	for _, part := range strings.SplitAfter(text, separator) {
		if part == "" {
			continue
		}
		if len(part) > chunkSize {
			flushPending()
			chunks = append(chunks, splitRecursive(part, remaining, chunkSize, chunkOverlap)...)
			continue
		}
		pending = append(pending, part)
	}
	flushPending()
	return chunks
}

// mergeSplits greedily packs splits into chunks up to chunkSize. Each flushed
// chunk seeds the next one with its tail; the overlap is capped at the chunk's
// own length and a trailing chunk that would contain nothing but carried
// overlap is dropped.
func mergeSplits(splits []string, chunkSize, chunkOverlap int) []string {
	var chunks []string
	current := ""
	carried := 0

	for _, split := range splits {
		if current != "" && len(current) > carried && len(current)+len(split) > chunkSize {
			chunks = append(chunks, current)
			tail := ""
			if chunkOverlap > 0 {
				tail = current
				if chunkOverlap < len(tail) {
					tail = tail[runeCeil(tail, len(tail)-chunkOverlap):]
				}
			}
			current = tail
			carried = len(tail)
		}
		current += split
	}
	if len(current) > carried {
		chunks = append(chunks, current)
	}
	return chunks
}

// hardCut handles separator-free text (rare) with a sliding window. Window
// edges land on rune boundaries so no chunk starts or ends mid-rune.
func hardCut(text string, chunkSize, chunkOverlap int) []string {
	step := chunkSize - chunkOverlap
	if step < 1 {
		step = 1
	}
	var chunks []string
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = runeFloor(text, end)
		}
		if end <= start {
			end = runeCeil(text, start+1)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
		next := runeFloor(text, start+step)
		if next <= start {
			next = runeCeil(text, start+1)
		}
		start = next
	}
	return chunks
}

// runeFloor backs i off to the nearest rune boundary at or before it.
func runeFloor(s string, i int) int {
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// runeCeil advances i to the next rune boundary at or after it.
func runeCeil(s string, i int) int {
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}
