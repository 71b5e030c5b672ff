package compressor

import (
	"strings"

	"github.com/akolanti/CompassAPI/internal/domain/ragModel"
)

// Compress keeps chunks in retrieval-rank order while they fit inside the
// token budget, estimating tokens as whitespace-delimited words. The first
// chunk that would push the running total over maxTokens stops the scan -
// chunk content is never truncated to squeeze it in.
func Compress(chunks []ragModel.ScoredChunk, maxTokens int) []ragModel.ScoredChunk {
	var kept []ragModel.ScoredChunk
	running := 0
	for _, chunk := range chunks {
		estimate := len(strings.Fields(chunk.Content))
		if running+estimate > maxTokens {
			break
		}
		kept = append(kept, chunk)
		running += estimate
	}
	return kept
}

// EstimateTokens exposes the same estimate used by Compress.
func EstimateTokens(content string) int {
	return len(strings.Fields(content))
}
