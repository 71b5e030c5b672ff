package stagecache

import (
	"context"
	"testing"
	"time"

	"github.com/akolanti/CompassAPI/internal/config"
	"github.com/akolanti/CompassAPI/internal/data/redisStore"
	"github.com/akolanti/CompassAPI/internal/domain/ragModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisCache(redisStore.NewTestStore(client)), mr
}

func sampleChunks() []ragModel.ScoredChunk {
	return []ragModel.ScoredChunk{
		{
			Chunk: ragModel.Chunk{
				ChunkID: "doc1-chunk-0",
				Content: "alpha content",
				Metadata: ragModel.ChunkMetadata{
					DocumentID: "doc1",
					Filename:   "alpha.md",
					ChunkTotal: 2,
				},
			},
			Score: 0.91,
		},
		{
			Chunk: ragModel.Chunk{
				ChunkID: "doc1-chunk-1",
				Content: "beta content",
				Metadata: ragModel.ChunkMetadata{
					DocumentID: "doc1",
					Filename:   "alpha.md",
					ChunkIndex: 1,
					ChunkTotal: 2,
				},
			},
			Score: 0.72,
		},
	}
}

func TestRewriteRoundtrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	if _, found, err := cache.GetRewrite(ctx, "what is compass"); err != nil || found {
		t.Fatalf("expected clean miss on empty cache, got found=%v err=%v", found, err)
	}

	if err := cache.SetRewrite(ctx, "what is compass", "what is compass"); err != nil {
		t.Fatalf("SetRewrite: %v", err)
	}
	value, found, err := cache.GetRewrite(ctx, "what is compass")
	if err != nil || !found || value != "what is compass" {
		t.Errorf("got (%q, %v, %v)", value, found, err)
	}
}

func TestRetrievalRoundtrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	chunks := sampleChunks()

	if err := cache.SetRetrieval(ctx, "query", 5, chunks); err != nil {
		t.Fatalf("SetRetrieval: %v", err)
	}

	got, found, err := cache.GetRetrieval(ctx, "query", 5)
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if len(got) != len(chunks) || got[0].ChunkID != "doc1-chunk-0" || got[1].Score != 0.72 {
		t.Errorf("unexpected cached chunks: %+v", got)
	}

	// a different topK must be a distinct entry
	if _, found, _ := cache.GetRetrieval(ctx, "query", 3); found {
		t.Error("topK should be part of the key")
	}
}

func TestCompressionKeyIgnoresChunkOrder(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	chunks := sampleChunks()

	if err := cache.SetCompression(ctx, "query", []string{"doc1-chunk-1", "doc1-chunk-0"}, chunks); err != nil {
		t.Fatalf("SetCompression: %v", err)
	}

	got, found, err := cache.GetCompression(ctx, "query", []string{"doc1-chunk-0", "doc1-chunk-1"})
	if err != nil || !found {
		t.Fatalf("expected hit for same ids in different order, got found=%v err=%v", found, err)
	}
	if len(got) != 2 {
		t.Errorf("got %d chunks", len(got))
	}
}

func TestCompressionKeyDistinguishesChunkSets(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	if err := cache.SetCompression(ctx, "query", []string{"doc1-chunk-0"}, sampleChunks()[:1]); err != nil {
		t.Fatalf("SetCompression: %v", err)
	}
	if _, found, _ := cache.GetCompression(ctx, "query", []string{"doc2-chunk-0"}); found {
		t.Error("different chunk sets must not collide")
	}
}

func TestAnswerRoundtripAndExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	payload := ragModel.AnswerPayload{
		Answer:  "the answer",
		Sources: []ragModel.AnswerSource{{ChunkID: "doc1-chunk-0", Filename: "alpha.md"}},
		Quotes:  []string{"alpha content"},
		Metadata: ragModel.AnswerMetadata{
			Mode:            ragModel.ModeAnswer,
			Model:           "gemini",
			RetrievedChunks: 2,
		},
	}
	if err := cache.SetAnswer(ctx, "query", "gemini", ragModel.ModeAnswer, payload); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	got, found, err := cache.GetAnswer(ctx, "query", "gemini", ragModel.ModeAnswer)
	if err != nil || !found || got.Answer != "the answer" || len(got.Sources) != 1 {
		t.Errorf("got (%+v, %v, %v)", got, found, err)
	}

	// mode is part of the key
	if _, found, _ := cache.GetAnswer(ctx, "query", "gemini", ragModel.ModeVerbatim); found {
		t.Error("mode should be part of the key")
	}

	mr.FastForward(config.CacheAnswerTTL + time.Minute)
	if _, found, _ := cache.GetAnswer(ctx, "query", "gemini", ragModel.ModeAnswer); found {
		t.Error("expected entry to expire")
	}
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	if err := cache.SetRetrieval(ctx, "query", 5, sampleChunks()); err != nil {
		t.Fatalf("SetRetrieval: %v", err)
	}
	key := retrievalKey("query", 5)
	mr.Set(key, "{not json")

	if _, found, err := cache.GetRetrieval(ctx, "query", 5); err != nil || found {
		t.Errorf("corrupt entry should read as a clean miss, got found=%v err=%v", found, err)
	}
}

func TestStoreOutageIsAnError(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	if err := cache.SetRewrite(ctx, "query", "query"); err != nil {
		t.Fatalf("SetRewrite: %v", err)
	}
	mr.Close()

	if _, _, err := cache.GetRewrite(ctx, "query"); err == nil {
		t.Error("expected an error when the backend is down, not a miss")
	}
	if _, _, err := cache.GetRetrieval(ctx, "query", 5); err == nil {
		t.Error("expected an error from GetRetrieval when the backend is down")
	}
	if err := cache.SetAnswer(ctx, "query", "gemini", ragModel.ModeAnswer, ragModel.AnswerPayload{}); err == nil {
		t.Error("expected an error from SetAnswer when the backend is down")
	}
}
