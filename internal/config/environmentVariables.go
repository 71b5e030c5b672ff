package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"
	NoAuthBypass   = true //dev only - set false and provide AUTH_TOKEN in prod

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//chunking
	ChunkSize     = 700
	ChunkOverlap  = 80
	ChunkStrategy = "auto" //markdown files get heading-aware splitting

	//retrieval + generation
	RagTopK          = 5
	MaxContextTokens = 1800
	DefaultChatMode  = "answer"

	//stage cache TTLs - rewrite keys off query text only so it lives longest,
	//answer keys include model+mode so it is the most request specific
	CacheRewriteTTL   = 24 * time.Hour
	CacheRetrievalTTL = 1 * time.Hour
	CacheCompressTTL  = 30 * time.Minute
	CacheAnswerTTL    = 15 * time.Minute

	//corpus
	AllowedExtensions = ".pdf,.docx,.xlsx,.csv,.md,.txt,.log"
	ManifestFilename  = ".compass_index.json"
	defaultCorpusDir  = "./notes"

	EmbeddingOutputDimensionality int32 = 1536
	CollectionName                      = "compass-chunks"

	EmbeddingBatchSize = 100

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	IngestJobTimeout                = 10 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 30 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//ingest job buffer limit
	BufferLimit = 100

	//vectorDB
	QdrantHost     = "localhost"
	QdrantGrpcPort = 6334
	QdrantUseTLS   = false
	QdrantPoolSize = 1

	//llm + embeddings
	GeminiModelName      = "gemini-2.5-flash-lite-preview-09-2025"
	GoogleEmbeddingModel = "gemini-embedding-001"

	SystemPrompt = "You are a helpful assistant that answers questions using the provided context. Cite the source identifiers. If the context does not contain the answer, reply with \"I don't know\" and encourage the user to refresh the knowledge base."

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DBs we can use
	RedisStageCache = 0
	RedisJobStore   = 1

	RedisJobStoreTTL = 24 * time.Hour
)

var (
	GoogleAPIKey  = os.Getenv("GOOGLE_API_KEY")
	AuthToken     = os.Getenv("AUTH_TOKEN")
	RedisPassword = os.Getenv("REDIS_PASSWORD")
)

// CorpusDir reads the env var on every call so tests can repoint it
func CorpusDir() string {
	if dir := os.Getenv("NOTES_DIR"); dir != "" {
		return dir
	}
	return defaultCorpusDir
}

func AllowedExtensionSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, ext := range strings.Split(AllowedExtensions, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" {
			set[ext] = struct{}{}
		}
	}
	return set
}
