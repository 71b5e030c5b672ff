package rag_test

import (
	"context"

	"github.com/akolanti/CompassAPI/internal/domain/ragModel"
)

// MockVectorDB implements vectorDB.DataProcessor
type MockVectorDB struct {
	// Control fields to simulate different behaviors
	OnSearch           func(ctx context.Context, vector []float32, topK uint64, filters map[string]string) ([]ragModel.ScoredChunk, error)
	OnEnsureCollection func(ctx context.Context) error
	OnUpsertBatch      func(ctx context.Context, chunks []ragModel.Chunk, vectors [][]float32) error
	OnDeleteByDocument func(ctx context.Context, documentID string) error

	Upserts int
	Deletes []string
}

func (m *MockVectorDB) Search(ctx context.Context, vector []float32, topK uint64, filters map[string]string) ([]ragModel.ScoredChunk, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, vector, topK, filters)
	}
	return nil, nil
}

func (m *MockVectorDB) EnsureCollection(ctx context.Context) error {
	if m.OnEnsureCollection != nil {
		return m.OnEnsureCollection(ctx)
	}
	return nil
}

func (m *MockVectorDB) UpsertBatch(ctx context.Context, chunks []ragModel.Chunk, vectors [][]float32) error {
	m.Upserts += len(chunks)
	if m.OnUpsertBatch != nil {
		return m.OnUpsertBatch(ctx, chunks, vectors)
	}
	return nil
}

func (m *MockVectorDB) DeleteByDocument(ctx context.Context, documentID string) error {
	m.Deletes = append(m.Deletes, documentID)
	if m.OnDeleteByDocument != nil {
		return m.OnDeleteByDocument(ctx, documentID)
	}
	return nil
}

type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, chunks []string) ([][]float32, error)
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, chunks)
	}
	vectors := make([][]float32, len(chunks))
	for i := range vectors {
		vectors[i] = []float32{0.1, 0.2, 0.3}
	}
	return vectors, nil
}

type MockLLM struct {
	OnGenerate func(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

func (m *MockLLM) Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, systemPrompt, userPrompt)
	}
	return "mock answer", nil
}

// MockCache implements stagecache.Cache as a plain in-process map. Err, when
// set, makes every call fail the way a downed backend would.
type MockCache struct {
	Rewrites     map[string]string
	Retrievals   map[string][]ragModel.ScoredChunk
	Compressions map[string][]ragModel.ScoredChunk
	Answers      map[string]ragModel.AnswerPayload
	Err          error
}

func NewMockCache() *MockCache {
	return &MockCache{
		Rewrites:     make(map[string]string),
		Retrievals:   make(map[string][]ragModel.ScoredChunk),
		Compressions: make(map[string][]ragModel.ScoredChunk),
		Answers:      make(map[string]ragModel.AnswerPayload),
	}
}

func (c *MockCache) GetRewrite(ctx context.Context, query string) (string, bool, error) {
	if c.Err != nil {
		return "", false, c.Err
	}
	v, ok := c.Rewrites[query]
	return v, ok, nil
}

func (c *MockCache) SetRewrite(ctx context.Context, query string, rewritten string) error {
	if c.Err != nil {
		return c.Err
	}
	c.Rewrites[query] = rewritten
	return nil
}

func (c *MockCache) GetRetrieval(ctx context.Context, query string, topK int) ([]ragModel.ScoredChunk, bool, error) {
	if c.Err != nil {
		return nil, false, c.Err
	}
	v, ok := c.Retrievals[query]
	return v, ok, nil
}

func (c *MockCache) SetRetrieval(ctx context.Context, query string, topK int, chunks []ragModel.ScoredChunk) error {
	if c.Err != nil {
		return c.Err
	}
	c.Retrievals[query] = chunks
	return nil
}

func (c *MockCache) GetCompression(ctx context.Context, query string, chunkIDs []string) ([]ragModel.ScoredChunk, bool, error) {
	if c.Err != nil {
		return nil, false, c.Err
	}
	v, ok := c.Compressions[query]
	return v, ok, nil
}

func (c *MockCache) SetCompression(ctx context.Context, query string, chunkIDs []string, chunks []ragModel.ScoredChunk) error {
	if c.Err != nil {
		return c.Err
	}
	c.Compressions[query] = chunks
	return nil
}

func (c *MockCache) GetAnswer(ctx context.Context, query string, model string, mode string) (ragModel.AnswerPayload, bool, error) {
	if c.Err != nil {
		return ragModel.AnswerPayload{}, false, c.Err
	}
	v, ok := c.Answers[query+"|"+model+"|"+mode]
	return v, ok, nil
}

func (c *MockCache) SetAnswer(ctx context.Context, query string, model string, mode string, payload ragModel.AnswerPayload) error {
	if c.Err != nil {
		return c.Err
	}
	c.Answers[query+"|"+model+"|"+mode] = payload
	return nil
}
