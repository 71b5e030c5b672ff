package vectorDB

import (
	"context"

	"github.com/akolanti/CompassAPI/internal/domain/ragModel"
)

type DataProcessor interface {
	// EnsureCollection creates the chunk collection when it does not exist.
	EnsureCollection(ctx context.Context) error
	UpsertBatch(ctx context.Context, chunks []ragModel.Chunk, vectors [][]float32) error
	// DeleteByDocument drops every point belonging to a document so a
	// re-ingest never leaves stale chunks behind.
	DeleteByDocument(ctx context.Context, documentID string) error
	Search(ctx context.Context, vector []float32, topK uint64, filters map[string]string) ([]ragModel.ScoredChunk, error)
}
