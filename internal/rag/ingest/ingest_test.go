package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/akolanti/CompassAPI/internal/domain/ragModel"
	"github.com/akolanti/CompassAPI/internal/rag/manifest"
)

type mockEmbedder struct {
	batchFunc func(ctx context.Context, chunks []string) ([][]float32, error)
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return []float32{0.1}, nil
}

func (m *mockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	if m.batchFunc != nil {
		return m.batchFunc(ctx, chunks)
	}
	vectors := make([][]float32, len(chunks))
	for i := range vectors {
		vectors[i] = []float32{0.1, 0.2}
	}
	return vectors, nil
}

type mockVectorDB struct {
	deleted   []string
	upserted  []ragModel.Chunk
	upsertErr error
	deleteErr error
}

func (m *mockVectorDB) EnsureCollection(ctx context.Context) error { return nil }

func (m *mockVectorDB) UpsertBatch(ctx context.Context, chunks []ragModel.Chunk, vectors [][]float32) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, chunks...)
	return nil
}

func (m *mockVectorDB) DeleteByDocument(ctx context.Context, documentID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, documentID)
	return nil
}

func (m *mockVectorDB) Search(ctx context.Context, vector []float32, topK uint64, filters map[string]string) ([]ragModel.ScoredChunk, error) {
	return nil, nil
}

func writeCorpusFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}

func TestDocumentID_Stable(t *testing.T) {
	a := DocumentID("/corpus/Notes.txt")
	b := DocumentID("/corpus/notes.TXT")
	if a != b {
		t.Error("document id should be case insensitive on the path")
	}
	if a == DocumentID("/corpus/other.txt") {
		t.Error("different paths must give different ids")
	}
}

func TestApplyPlan_IngestsAndRecordsManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeCorpusFile(t, dir, "notes.txt", "some note text worth indexing")

	m := manifest.Manifest{}
	plan := []manifest.PlannedFile{{Path: path, Hash: "h1"}}
	db := &mockVectorDB{}

	summary, err := ApplyPlan(context.Background(), m, plan, &mockEmbedder{}, db)
	if err != nil {
		t.Fatalf("ApplyPlan failed: %v", err)
	}
	if summary.ScannedFiles != 1 || summary.SkippedFiles != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if summary.IngestedChunks != len(db.upserted) {
		t.Errorf("summary chunks %d != upserted %d", summary.IngestedChunks, len(db.upserted))
	}

	entry, ok := m["notes.txt"]
	if !ok {
		t.Fatal("manifest entry missing")
	}
	if entry.Hash != "h1" || entry.TotalChunks != len(db.upserted) {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.DocumentID != DocumentID(path) {
		t.Error("entry document id mismatch")
	}
	if entry.SizeBytes != int64(len("some note text worth indexing")) {
		t.Errorf("size = %d, want the on-disk size", entry.SizeBytes)
	}
}

// CSV extraction re-encodes the rows, so the extracted text is shorter than
// the file. The manifest must still record what is on disk.
func TestApplyPlan_ManifestRecordsOnDiskSize(t *testing.T) {
	dir := t.TempDir()
	content := "a,b\r\n1,2\r\n"
	path := writeCorpusFile(t, dir, "data.csv", content)

	m := manifest.Manifest{}
	_, err := ApplyPlan(context.Background(), m,
		[]manifest.PlannedFile{{Path: path, Hash: "h1"}}, &mockEmbedder{}, &mockVectorDB{})
	if err != nil {
		t.Fatalf("ApplyPlan failed: %v", err)
	}

	entry, ok := m["data.csv"]
	if !ok {
		t.Fatal("manifest entry missing")
	}
	if entry.SizeBytes != int64(len(content)) {
		t.Errorf("size = %d, want %d", entry.SizeBytes, len(content))
	}
}

func TestApplyPlan_DeletesBeforeUpsert(t *testing.T) {
	dir := t.TempDir()
	path := writeCorpusFile(t, dir, "notes.txt", "fresh content")

	db := &mockVectorDB{}
	_, err := ApplyPlan(context.Background(), manifest.Manifest{},
		[]manifest.PlannedFile{{Path: path, Hash: "h1"}}, &mockEmbedder{}, db)
	if err != nil {
		t.Fatalf("ApplyPlan failed: %v", err)
	}
	if len(db.deleted) != 1 || db.deleted[0] != DocumentID(path) {
		t.Errorf("expected one delete for the document, got %v", db.deleted)
	}
}

func TestApplyPlan_SkipsUnreadableFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "ghost.txt")

	db := &mockVectorDB{}
	summary, err := ApplyPlan(context.Background(), manifest.Manifest{},
		[]manifest.PlannedFile{{Path: missing, Hash: "h1"}}, &mockEmbedder{}, db)
	if err != nil {
		t.Fatalf("ApplyPlan failed: %v", err)
	}
	if summary.SkippedFiles != 1 || summary.IngestedChunks != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if len(db.upserted) != 0 {
		t.Error("nothing should be upserted for a skipped file")
	}
}

func TestApplyPlan_SkipsEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeCorpusFile(t, dir, "empty.txt", "   \n\t ")

	m := manifest.Manifest{}
	summary, err := ApplyPlan(context.Background(), m,
		[]manifest.PlannedFile{{Path: path, Hash: "h1"}}, &mockEmbedder{}, &mockVectorDB{})
	if err != nil {
		t.Fatalf("ApplyPlan failed: %v", err)
	}
	if summary.SkippedFiles != 1 {
		t.Errorf("expected skip, got %+v", summary)
	}
	if _, ok := m["empty.txt"]; ok {
		t.Error("skipped file must not enter the manifest")
	}
}

// Embedding and vector-index failures are infrastructure faults. They abort
// the pass with an error instead of being folded into per-file skips.
func TestApplyPlan_EmbeddingFailureAbortsPass(t *testing.T) {
	dir := t.TempDir()
	path := writeCorpusFile(t, dir, "notes.txt", "content")

	embedder := &mockEmbedder{
		batchFunc: func(ctx context.Context, chunks []string) ([][]float32, error) {
			return nil, errors.New("embedding backend unavailable")
		},
	}
	m := manifest.Manifest{}
	db := &mockVectorDB{}
	_, err := ApplyPlan(context.Background(), m,
		[]manifest.PlannedFile{{Path: path, Hash: "h1"}}, embedder, db)
	if err == nil {
		t.Fatal("expected ApplyPlan to fail")
	}
	if len(db.upserted) != 0 {
		t.Error("nothing should be upserted after an embedding failure")
	}
	if _, ok := m["notes.txt"]; ok {
		t.Error("a failed file must not enter the manifest")
	}
}

func TestApplyPlan_UpsertFailureAbortsPass(t *testing.T) {
	dir := t.TempDir()
	path := writeCorpusFile(t, dir, "notes.txt", "content")

	m := manifest.Manifest{}
	db := &mockVectorDB{upsertErr: errors.New("qdrant unavailable")}
	_, err := ApplyPlan(context.Background(), m,
		[]manifest.PlannedFile{{Path: path, Hash: "h1"}}, &mockEmbedder{}, db)
	if err == nil {
		t.Fatal("expected ApplyPlan to fail")
	}
	if _, ok := m["notes.txt"]; ok {
		t.Error("a failed file must not enter the manifest")
	}
}

func TestApplyPlan_DeleteFailureAbortsPass(t *testing.T) {
	dir := t.TempDir()
	path := writeCorpusFile(t, dir, "notes.txt", "content")

	db := &mockVectorDB{deleteErr: errors.New("qdrant unavailable")}
	_, err := ApplyPlan(context.Background(), manifest.Manifest{},
		[]manifest.PlannedFile{{Path: path, Hash: "h1"}}, &mockEmbedder{}, db)
	if err == nil {
		t.Fatal("expected ApplyPlan to fail")
	}
	if len(db.upserted) != 0 {
		t.Error("nothing should be upserted when the stale-chunk delete fails")
	}
}
