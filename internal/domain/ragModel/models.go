package ragModel

// ChunkMetadata travels with every chunk into the vector index payload and
// back out on retrieval. SectionTitle is only set for markdown-aware chunking
// (heading ancestry h1..h4 joined with " > ").
type ChunkMetadata struct {
	DocumentID      string `json:"document_id"`
	Filename        string `json:"filename"`
	ChunkIndex      int    `json:"chunk_index"`
	ChunkTotal      int    `json:"chunk_total"`
	ContentLength   int    `json:"content_length"`
	ChunkStrategy   string `json:"chunk_strategy,omitempty"`
	SourceExtension string `json:"source_extension,omitempty"`
	SectionTitle    string `json:"section_title,omitempty"`
	Page            int    `json:"page,omitempty"`
}

// Chunk is the unit of embedding and retrieval. ChunkID is derived from
// (document id, ordinal) and stays stable across re-ingestion of identical
// content.
type Chunk struct {
	ChunkID  string        `json:"chunk_id"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ScoredChunk is a retrieval hit - the chunk plus its cosine match score.
type ScoredChunk struct {
	Chunk
	Score float32 `json:"score"`
}

type AnswerSource struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkID    string `json:"chunk_id"`
	Page       int    `json:"page,omitempty"`
}

type AnswerMetadata struct {
	Mode            string `json:"mode"`
	Model           string `json:"model"`
	RetrievedChunks int    `json:"retrieved_chunks,omitempty"`
}

// AnswerPayload is what the query path always returns - short circuits
// produce one with empty Sources/Quotes and the reason in Answer.
type AnswerPayload struct {
	Answer   string         `json:"answer"`
	Sources  []AnswerSource `json:"sources"`
	Quotes   []string       `json:"quotes"`
	Metadata AnswerMetadata `json:"metadata"`
}

// SyncSummary reports one ingestion pass.
type SyncSummary struct {
	ScannedFiles   int `json:"scanned_files"`
	IngestedChunks int `json:"ingested_chunks"`
	SkippedFiles   int `json:"skipped_files"`
}

const (
	ModeAnswer   = "answer"
	ModeVerbatim = "verbatim"
)
