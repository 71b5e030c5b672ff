package stagecache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/akolanti/CompassAPI/internal/adapter/utils"
	"github.com/akolanti/CompassAPI/internal/config"
	"github.com/akolanti/CompassAPI/internal/data/redisStore"
	"github.com/akolanti/CompassAPI/internal/domain/ragModel"
	"github.com/akolanti/CompassAPI/pkg/logger_i"
)

// Pipeline stages, also used as key prefixes and metric labels.
const (
	StageRewrite  = "rewrite"
	StageRetrieve = "retrieve"
	StageCompress = "compress"
	StageAnswer   = "answer"
)

// Cache memoizes intermediate pipeline results. An absent key is a miss
// (found=false, nil error); a backend failure is an error the caller must
// surface, never a silent miss. A corrupt entry is evicted and read as a miss.
type Cache interface {
	GetRewrite(ctx context.Context, query string) (string, bool, error)
	SetRewrite(ctx context.Context, query string, rewritten string) error

	GetRetrieval(ctx context.Context, query string, topK int) ([]ragModel.ScoredChunk, bool, error)
	SetRetrieval(ctx context.Context, query string, topK int, chunks []ragModel.ScoredChunk) error

	GetCompression(ctx context.Context, query string, chunkIDs []string) ([]ragModel.ScoredChunk, bool, error)
	SetCompression(ctx context.Context, query string, chunkIDs []string, chunks []ragModel.ScoredChunk) error

	GetAnswer(ctx context.Context, query string, model string, mode string) (ragModel.AnswerPayload, bool, error)
	SetAnswer(ctx context.Context, query string, model string, mode string, payload ragModel.AnswerPayload) error
}

type redisCache struct {
	store *redisStore.Store
}

func NewRedisCache(store *redisStore.Store) Cache {
	if logger == nil {
		logger = logger_i.NewLogger("StageCache")
	}
	return &redisCache{store: store}
}

var logger *logger_i.Logger

// stageKey builds "<stage>:<digest>" where the digest covers every input that
// determines the stage's output.
func stageKey(stage string, inputs ...string) string {
	return stage + ":" + utils.HashText(strings.Join(inputs, "::"))
}

// compressionKey sorts a copy of the chunk ids so two retrievals that return
// the same chunks in different order share one entry.
func compressionKey(query string, chunkIDs []string) string {
	ids := make([]string, len(chunkIDs))
	copy(ids, chunkIDs)
	sort.Strings(ids)
	inputs := append([]string{query}, ids...)
	return stageKey(StageCompress, inputs...)
}

func (c *redisCache) GetRewrite(ctx context.Context, query string) (string, bool, error) {
	value, err := c.store.Get(ctx, stageKey(StageRewrite, query))
	if err != nil {
		if c.store.IsNil(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("rewrite cache lookup: %w", err)
	}
	return value, true, nil
}

func (c *redisCache) SetRewrite(ctx context.Context, query string, rewritten string) error {
	return c.set(ctx, stageKey(StageRewrite, query), rewritten, config.CacheRewriteTTL)
}

func (c *redisCache) GetRetrieval(ctx context.Context, query string, topK int) ([]ragModel.ScoredChunk, bool, error) {
	var chunks []ragModel.ScoredChunk
	found, err := c.getJSON(ctx, retrievalKey(query, topK), &chunks)
	if err != nil || !found {
		return nil, false, err
	}
	return chunks, true, nil
}

func (c *redisCache) SetRetrieval(ctx context.Context, query string, topK int, chunks []ragModel.ScoredChunk) error {
	return c.setJSON(ctx, retrievalKey(query, topK), chunks, config.CacheRetrievalTTL)
}

func (c *redisCache) GetCompression(ctx context.Context, query string, chunkIDs []string) ([]ragModel.ScoredChunk, bool, error) {
	var chunks []ragModel.ScoredChunk
	found, err := c.getJSON(ctx, compressionKey(query, chunkIDs), &chunks)
	if err != nil || !found {
		return nil, false, err
	}
	return chunks, true, nil
}

func (c *redisCache) SetCompression(ctx context.Context, query string, chunkIDs []string, chunks []ragModel.ScoredChunk) error {
	return c.setJSON(ctx, compressionKey(query, chunkIDs), chunks, config.CacheCompressTTL)
}

func (c *redisCache) GetAnswer(ctx context.Context, query string, model string, mode string) (ragModel.AnswerPayload, bool, error) {
	var payload ragModel.AnswerPayload
	found, err := c.getJSON(ctx, stageKey(StageAnswer, query, model, mode), &payload)
	if err != nil || !found {
		return ragModel.AnswerPayload{}, false, err
	}
	return payload, true, nil
}

func (c *redisCache) SetAnswer(ctx context.Context, query string, model string, mode string, payload ragModel.AnswerPayload) error {
	return c.setJSON(ctx, stageKey(StageAnswer, query, model, mode), payload, config.CacheAnswerTTL)
}

func retrievalKey(query string, topK int) string {
	return stageKey(StageRetrieve, query, strconv.Itoa(topK))
}

func (c *redisCache) getJSON(ctx context.Context, key string, target any) (bool, error) {
	value, err := c.store.Get(ctx, key)
	if err != nil {
		if c.store.IsNil(err) {
			return false, nil
		}
		return false, fmt.Errorf("cache lookup %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(value), target); err != nil {
		logger.Error("Corrupt cache entry, evicting", "key", key, "error", err)
		_ = c.store.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

func (c *redisCache) setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return c.set(ctx, key, string(data), ttl)
}

func (c *redisCache) set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		return fmt.Errorf("cache write %s: %w", key, err)
	}
	return nil
}
