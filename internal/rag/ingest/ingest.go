package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/CompassAPI/internal/adapter/utils"
	"github.com/akolanti/CompassAPI/internal/config"
	"github.com/akolanti/CompassAPI/internal/domain/ragModel"
	"github.com/akolanti/CompassAPI/internal/metrics"
	"github.com/akolanti/CompassAPI/internal/rag/chunker"
	"github.com/akolanti/CompassAPI/internal/rag/embedding"
	"github.com/akolanti/CompassAPI/internal/rag/extract"
	"github.com/akolanti/CompassAPI/internal/rag/manifest"
	"github.com/akolanti/CompassAPI/internal/rag/vectorDB"
	"github.com/akolanti/CompassAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("Ingest")

// DocumentID derives the stable id for a corpus file from its lowercased
// absolute path, so the same file always maps to the same document.
func DocumentID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return utils.HashText(strings.ToLower(abs))
}

// ApplyPlan ingests every planned file: extract, chunk, embed, upsert, and
// record the outcome in the manifest. A file that fails extraction or yields
// no chunks is skipped; embedding, vector-index and collection failures are
// infrastructure faults and abort the pass with an error. The manifest is
// mutated in place; the caller persists it once after the pass.
func ApplyPlan(ctx context.Context, m manifest.Manifest, plan []manifest.PlannedFile, e embedding.Embedder, vectorDatabase vectorDB.DataProcessor) (ragModel.SyncSummary, error) {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	summary := ragModel.SyncSummary{ScannedFiles: len(plan)}
	if len(plan) == 0 {
		return summary, nil
	}

	if err := vectorDatabase.EnsureCollection(ctx); err != nil {
		loggr.Error("Error ensuring collection", "error", err)
		return summary, fmt.Errorf("ensure collection: %w", err)
	}

	for _, planned := range plan {
		ingested, skipped, err := ingestFile(ctx, m, planned, e, vectorDatabase)
		if err != nil {
			return summary, err
		}
		if skipped {
			summary.SkippedFiles++
			continue
		}
		summary.IngestedChunks += ingested
	}
	return summary, nil
}

func ingestFile(ctx context.Context, m manifest.Manifest, planned manifest.PlannedFile, e embedding.Embedder, vectorDatabase vectorDB.DataProcessor) (int, bool, error) {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "path", planned.Path)

	text, ok := extract.Text(planned.Path)
	if !ok {
		loggr.Warn("Extraction failed, skipping file")
		return 0, true, nil
	}

	documentID := DocumentID(planned.Path)

	// stale chunks go first so a shrinking document leaves no orphans
	if err := vectorDatabase.DeleteByDocument(ctx, documentID); err != nil {
		loggr.Error("Error clearing stale chunks", "error", err)
		return 0, false, fmt.Errorf("delete document %s: %w", documentID, err)
	}

	filename := filepath.Base(planned.Path)
	chunks := chunker.Chunk(documentID, filename, text,
		config.ChunkSize, config.ChunkOverlap,
		strings.ToLower(filepath.Ext(planned.Path)), config.ChunkStrategy)
	if len(chunks) == 0 {
		loggr.Warn("No chunks produced, skipping file")
		return 0, true, nil
	}

	for start := 0; start < len(chunks); start += config.EmbeddingBatchSize {
		end := min(start+config.EmbeddingBatchSize, len(chunks))
		batch := chunks[start:end]

		contents := make([]string, len(batch))
		for i, chunk := range batch {
			contents[i] = chunk.Content
		}
		vectors, err := e.BatchEmbedding(ctx, contents)
		if err != nil {
			loggr.Error("Error embedding batch", "error", err)
			return 0, false, fmt.Errorf("embed %s: %w", filename, err)
		}
		if err := vectorDatabase.UpsertBatch(ctx, batch, vectors); err != nil {
			loggr.Error("Error upserting batch", "error", err)
			return 0, false, fmt.Errorf("upsert %s: %w", filename, err)
		}
	}

	// manifest records the on-disk size, not the extracted-text length
	info, err := os.Stat(planned.Path)
	if err != nil {
		return 0, false, fmt.Errorf("stat %s: %w", filename, err)
	}

	m.Update(filename, documentID, planned.Hash, info.Size(), len(chunks))
	metrics.CaptureIngestedChunks(len(chunks))
	loggr.Info("Ingested document", "documentId", documentID, "chunks", len(chunks))
	return len(chunks), false, nil
}
