package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/CompassAPI/internal/adapter/utils"
	"github.com/akolanti/CompassAPI/internal/config"
	"github.com/akolanti/CompassAPI/internal/domain/ragModel"
	"github.com/akolanti/CompassAPI/internal/rag/embedding"
	"github.com/akolanti/CompassAPI/internal/rag/ingest"
	"github.com/akolanti/CompassAPI/internal/rag/llm"
	"github.com/akolanti/CompassAPI/internal/rag/manifest"
	"github.com/akolanti/CompassAPI/internal/rag/stagecache"
	"github.com/akolanti/CompassAPI/internal/rag/vectorDB"
	"github.com/akolanti/CompassAPI/pkg/logger_i"
)

/*
ARCHITECTURE NOTE: OPAQUE INTERFACE PATTERN
---------------------------------------------------------

1. Service (Interface):
  - Real work happens down low bruh
  - This is the PUBLIC contract.
  - It defines the "behavior" (what the handlers and worker can do).

2. service (Private Struct):
  - down low stuff
  - This is the PRIVATE implementation.
  - It holds the "state" (database connections and LLM clients).
  - It is lowercase to prevent external packages from accessing our
    internal dependencies (vectorDB, llmProvider) directly.

3. Pointer Receiver (*service):
  - By defining methods on (*service), the struct IMPLICITLY satisfies
    the Service interface.
  - if it quacks like a duck, -it's a duck (Duck Typing)

4. Dependency Injection (NewService):
  - This constructor links the private struct to the public interface.
  - It allows us to swap real DBs for mocks during testing without
    changing the handler or worker code.
*/

// Answers returned instead of an error when a pipeline stage has nothing to
// work with. The query path degrades to these, it does not fail.
const (
	MsgEmptyQuery     = "Query is empty. Please provide a question."
	MsgNoContext      = "No relevant context found. Try refreshing documents."
	MsgBudgetTooSmall = "Context limit reached without usable chunks."
	MsgChunkTextGone  = "Context chunk text unavailable."
)

type Service interface {
	// Answer runs the query pipeline: normalize, rewrite, retrieve,
	// compress, generate. Every stage short circuits to a structured
	// empty answer rather than an error when it has nothing to pass on.
	Answer(ctx context.Context, query string, mode string, filters map[string]string) (ragModel.AnswerPayload, error)

	// Refresh scans the corpus directory and ingests new or changed files.
	// force re-ingests everything regardless of manifest state.
	Refresh(ctx context.Context, force bool) (ragModel.SyncSummary, error)

	// IngestFiles ingests the given corpus files unconditionally. Used by
	// the upload path where the files are known to be new.
	IngestFiles(ctx context.Context, paths []string) (ragModel.SyncSummary, error)
}

type service struct {
	vectorDB    vectorDB.DataProcessor
	llmProvider llm.Provider
	embedder    embedding.Embedder
	cache       stagecache.Cache
	logger      *logger_i.Logger
}

// NewService constructor
func NewService(vector vectorDB.DataProcessor, llm llm.Provider, em embedding.Embedder, cache stagecache.Cache) Service {
	return &service{
		vectorDB:    vector,
		llmProvider: llm,
		embedder:    em,
		cache:       cache,
		logger:      logger_i.NewLogger("RAG Service :"),
	}
}

func (s *service) Answer(ctx context.Context, query string, mode string, filters map[string]string) (ragModel.AnswerPayload, error) {
	inMethodLogger := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	processContext, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if mode != ragModel.ModeVerbatim {
		mode = ragModel.ModeAnswer
	}

	normalized := normalizeQuery(query)
	if normalized == "" {
		return emptyAnswer(MsgEmptyQuery, mode, 0), nil
	}

	rewritten, err := s.executeRewriteStep(processContext, inMethodLogger, normalized)
	if err != nil {
		return ragModel.AnswerPayload{}, &StageError{Stage: stagecache.StageRewrite, Err: err}
	}

	retrieved, err := s.executeRetrieveStep(processContext, inMethodLogger, rewritten, filters)
	if err != nil {
		return ragModel.AnswerPayload{}, &StageError{Stage: stagecache.StageRetrieve, Err: err}
	}
	if len(retrieved) == 0 {
		return emptyAnswer(MsgNoContext, mode, 0), nil
	}

	compressed, err := s.executeCompressStep(processContext, inMethodLogger, rewritten, retrieved)
	if err != nil {
		return ragModel.AnswerPayload{}, &StageError{Stage: stagecache.StageCompress, Err: err}
	}
	if len(compressed) == 0 {
		return emptyAnswer(MsgBudgetTooSmall, mode, len(retrieved)), nil
	}
	if !hasUsableText(compressed) {
		return emptyAnswer(MsgChunkTextGone, mode, len(retrieved)), nil
	}

	// the model gets the caller's wording, not the normalized cache key
	payload, err := s.executeGenerateStep(processContext, inMethodLogger, rewritten, strings.TrimSpace(query), mode, compressed)
	if err != nil {
		return ragModel.AnswerPayload{}, &StageError{Stage: stagecache.StageAnswer, Err: err}
	}
	return payload, nil
}

func (s *service) Refresh(ctx context.Context, force bool) (ragModel.SyncSummary, error) {
	inMethodLogger := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	dir := config.CorpusDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ragModel.SyncSummary{}, fmt.Errorf("corpus dir: %w", err)
	}

	m, err := manifest.Load(dir)
	if err != nil {
		return ragModel.SyncSummary{}, fmt.Errorf("manifest load: %w", err)
	}

	plan, err := manifest.PlanSync(dir, m, force)
	if err != nil {
		return ragModel.SyncSummary{}, fmt.Errorf("plan sync: %w", err)
	}
	inMethodLogger.Info("Refresh planned", "files", len(plan), "force", force)

	summary, err := ingest.ApplyPlan(ctx, m, plan, s.embedder, s.vectorDB)
	if err != nil {
		return summary, &StageError{Stage: StageIngest, Err: err}
	}

	// one durable write per pass
	if err := manifest.Save(dir, m); err != nil {
		return summary, fmt.Errorf("manifest save: %w", err)
	}
	return summary, nil
}

func (s *service) IngestFiles(ctx context.Context, paths []string) (ragModel.SyncSummary, error) {
	dir := config.CorpusDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ragModel.SyncSummary{}, fmt.Errorf("corpus dir: %w", err)
	}

	m, err := manifest.Load(dir)
	if err != nil {
		return ragModel.SyncSummary{}, fmt.Errorf("manifest load: %w", err)
	}

	plan := make([]manifest.PlannedFile, 0, len(paths))
	for _, path := range paths {
		hash, err := hashPlannedFile(path)
		if err != nil {
			s.logger.Error("Skipping unreadable upload", "path", path, "error", err)
			continue
		}
		plan = append(plan, manifest.PlannedFile{Path: path, Hash: hash})
	}

	summary, err := ingest.ApplyPlan(ctx, m, plan, s.embedder, s.vectorDB)
	if err != nil {
		return summary, &StageError{Stage: StageIngest, Err: err}
	}
	if err := manifest.Save(dir, m); err != nil {
		return summary, fmt.Errorf("manifest save: %w", err)
	}
	return summary, nil
}

func hashPlannedFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return utils.HashFile(abs)
}
