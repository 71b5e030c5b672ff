package rag

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akolanti/CompassAPI/internal/config"
	"github.com/akolanti/CompassAPI/internal/domain/ragModel"
	"github.com/akolanti/CompassAPI/internal/metrics"
	"github.com/akolanti/CompassAPI/internal/rag/compressor"
	"github.com/akolanti/CompassAPI/internal/rag/stagecache"
	"github.com/akolanti/CompassAPI/pkg/logger_i"
)

// StageError tags a pipeline failure with the stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageIngest tags ingestion failures, alongside the query stages in
// the stagecache package.
const StageIngest = "ingest"

// normalizeQuery lowercases and collapses runs of whitespace so equivalent
// queries share cache entries. Only cache keys use the normalized form, the
// model sees the caller's original wording.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func emptyAnswer(message string, mode string, retrieved int) ragModel.AnswerPayload {
	return ragModel.AnswerPayload{
		Answer:  message,
		Sources: []ragModel.AnswerSource{},
		Quotes:  []string{},
		Metadata: ragModel.AnswerMetadata{
			Mode:            mode,
			Model:           config.GeminiModelName,
			RetrievedChunks: retrieved,
		},
	}
}

func hasUsableText(chunks []ragModel.ScoredChunk) bool {
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Content) != "" {
			return true
		}
	}
	return false
}

// The rewrite stage is an identity transform today. It stays in the pipeline
// with its own cache slot so a real rewriter can drop in without touching
// the flow.
func (s *service) executeRewriteStep(ctx context.Context, log *logger_i.Logger, query string) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("rewrite", time.Since(start)) }()

	cached, found, err := s.cache.GetRewrite(ctx, query)
	if err != nil {
		return "", err
	}
	if found {
		metrics.CaptureCacheResult(stagecache.StageRewrite, true)
		return cached, nil
	}
	metrics.CaptureCacheResult(stagecache.StageRewrite, false)

	rewritten := query
	if err := s.cache.SetRewrite(ctx, query, rewritten); err != nil {
		return "", err
	}
	return rewritten, nil
}

func (s *service) executeRetrieveStep(ctx context.Context, log *logger_i.Logger, query string, filters map[string]string) ([]ragModel.ScoredChunk, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("retrieve", time.Since(start)) }()

	// filtered retrievals bypass the cache, its key only covers query+topK
	if len(filters) == 0 {
		cached, found, err := s.cache.GetRetrieval(ctx, query, config.RagTopK)
		if err != nil {
			return nil, err
		}
		if found {
			metrics.CaptureCacheResult(stagecache.StageRetrieve, true)
			return cached, nil
		}
		metrics.CaptureCacheResult(stagecache.StageRetrieve, false)
	}

	vector, err := s.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.vectorDB.Search(ctx, vector, uint64(config.RagTopK), filters)
	if err != nil {
		return nil, err
	}
	log.Debug("Retrieval complete", "hits", len(hits))

	if len(filters) == 0 {
		if err := s.cache.SetRetrieval(ctx, query, config.RagTopK, hits); err != nil {
			return nil, err
		}
	}
	return hits, nil
}

func (s *service) executeCompressStep(ctx context.Context, log *logger_i.Logger, query string, retrieved []ragModel.ScoredChunk) ([]ragModel.ScoredChunk, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("compress", time.Since(start)) }()

	chunkIDs := make([]string, len(retrieved))
	for i, chunk := range retrieved {
		chunkIDs[i] = chunk.ChunkID
	}

	cached, found, err := s.cache.GetCompression(ctx, query, chunkIDs)
	if err != nil {
		return nil, err
	}
	if found {
		metrics.CaptureCacheResult(stagecache.StageCompress, true)
		return cached, nil
	}
	metrics.CaptureCacheResult(stagecache.StageCompress, false)

	compressed := compressor.Compress(retrieved, config.MaxContextTokens)
	log.Debug("Compression complete", "kept", len(compressed), "retrieved", len(retrieved))

	if err := s.cache.SetCompression(ctx, query, chunkIDs, compressed); err != nil {
		return nil, err
	}
	return compressed, nil
}

// cacheQuery keys the answer cache, promptQuery is the caller's original
// wording and is what the model actually sees.
func (s *service) executeGenerateStep(ctx context.Context, log *logger_i.Logger, cacheQuery string, promptQuery string, mode string, compressed []ragModel.ScoredChunk) (ragModel.AnswerPayload, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("generate", time.Since(start)) }()

	cached, found, err := s.cache.GetAnswer(ctx, cacheQuery, config.GeminiModelName, mode)
	if err != nil {
		return ragModel.AnswerPayload{}, err
	}
	if found {
		metrics.CaptureCacheResult(stagecache.StageAnswer, true)
		return cached, nil
	}
	metrics.CaptureCacheResult(stagecache.StageAnswer, false)

	answer, err := s.llmProvider.Generate(ctx, systemPromptFor(mode), buildUserPrompt(promptQuery, compressed))
	if err != nil {
		return ragModel.AnswerPayload{}, err
	}

	payload := ragModel.AnswerPayload{
		Answer:  answer,
		Sources: collectSources(compressed),
		Quotes:  collectQuotes(compressed),
		Metadata: ragModel.AnswerMetadata{
			Mode:            mode,
			Model:           config.GeminiModelName,
			RetrievedChunks: len(compressed),
		},
	}
	if err := s.cache.SetAnswer(ctx, cacheQuery, config.GeminiModelName, mode, payload); err != nil {
		return ragModel.AnswerPayload{}, err
	}
	return payload, nil
}

func systemPromptFor(mode string) string {
	if mode == ragModel.ModeVerbatim {
		return config.SystemPrompt + " Return verbatim snippets with citations referencing [chunk-id]."
	}
	return config.SystemPrompt + " Answer succinctly with citations referencing [chunk-id]."
}

// buildUserPrompt lays each chunk out as "[chunk_id] content" so the model
// can cite ids it actually saw.
func buildUserPrompt(query string, chunks []ragModel.ScoredChunk) string {
	lines := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		lines = append(lines, fmt.Sprintf("[%s] %s", chunk.ChunkID, chunk.Content))
	}
	return fmt.Sprintf("Question: %s\nContext:\n%s", query, strings.Join(lines, "\n"))
}

// collectSources dedupes by chunk id, first appearance wins.
func collectSources(chunks []ragModel.ScoredChunk) []ragModel.AnswerSource {
	seen := make(map[string]struct{}, len(chunks))
	sources := make([]ragModel.AnswerSource, 0, len(chunks))
	for _, chunk := range chunks {
		if _, ok := seen[chunk.ChunkID]; ok {
			continue
		}
		seen[chunk.ChunkID] = struct{}{}
		sources = append(sources, ragModel.AnswerSource{
			DocumentID: chunk.Metadata.DocumentID,
			Filename:   chunk.Metadata.Filename,
			ChunkID:    chunk.ChunkID,
			Page:       chunk.Metadata.Page,
		})
	}
	return sources
}

func collectQuotes(chunks []ragModel.ScoredChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	quotes := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if _, ok := seen[chunk.ChunkID]; ok {
			continue
		}
		seen[chunk.ChunkID] = struct{}{}
		quotes = append(quotes, truncateQuote(chunk.Content, 400))
	}
	return quotes
}

// truncateQuote caps a quote at limit bytes without splitting a rune.
func truncateQuote(quote string, limit int) string {
	if len(quote) <= limit {
		return quote
	}
	for limit > 0 && !utf8.RuneStart(quote[limit]) {
		limit--
	}
	return quote[:limit]
}
