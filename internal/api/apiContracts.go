package api

import (
	"time"

	"github.com/akolanti/CompassAPI/internal/domain/ragModel"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string                `json:"id" example:"job_cz109"`
	Result    Result                `json:"result"`
	Error     *JobOutgoingError     `json:"error,omitempty"`
	StartTime time.Time             `json:"start_time"`
	EndTime   time.Time             `json:"end_time,omitempty"`
	Summary   *ragModel.SyncSummary `json:"summary,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type Result struct {
	Status string   `json:"status"`
	Files  []string `json:"files,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

type AskResponse struct {
	Answer   string                  `json:"answer"`
	Sources  []ragModel.AnswerSource `json:"sources"`
	Quotes   []string                `json:"quotes"`
	Metadata ragModel.AnswerMetadata `json:"metadata"`
}

type RefreshResponse struct {
	ScannedFiles   int `json:"scanned_files"`
	IngestedChunks int `json:"ingested_chunks"`
	SkippedFiles   int `json:"skipped_files"`
}

type FileMetadata struct {
	Filename       string    `json:"filename"`
	DocumentID     string    `json:"document_id"`
	SizeBytes      int64     `json:"size_bytes"`
	TotalChunks    int       `json:"total_chunks"`
	LastIngestedAt time.Time `json:"last_ingested_at"`
}

type FileListResponse struct {
	Files []FileMetadata `json:"files"`
}

type SourceTextResponse struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// requests---------------------

type AskRequest struct {
	Query   string            `json:"query" validate:"required"`
	Mode    string            `json:"mode,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
}

type RefreshRequest struct {
	Force bool `json:"force,omitempty"`
}

type JobStatusRequest struct {
	JobId string `json:"job_id" validate:"required"`
}
