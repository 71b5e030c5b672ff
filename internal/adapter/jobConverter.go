package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/CompassAPI/internal/api"
	"github.com/akolanti/CompassAPI/internal/domain/jobModel"
	"github.com/akolanti/CompassAPI/internal/domain/ragModel"
	"github.com/akolanti/CompassAPI/internal/rag/manifest"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id), //pass "status/job.Id"
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status: string(job.Status),
		Files:  job.JobPayload.IngestFileNames,
	}

	return api.JobResponse{
		Id:        job.Id,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
		Summary:   job.JobPayload.Summary,
	}
}

func ToAskResponse(payload ragModel.AnswerPayload) api.AskResponse {
	return api.AskResponse{
		Answer:   payload.Answer,
		Sources:  payload.Sources,
		Quotes:   payload.Quotes,
		Metadata: payload.Metadata,
	}
}

func ToRefreshResponse(summary ragModel.SyncSummary) api.RefreshResponse {
	return api.RefreshResponse{
		ScannedFiles:   summary.ScannedFiles,
		IngestedChunks: summary.IngestedChunks,
		SkippedFiles:   summary.SkippedFiles,
	}
}

func ToFileListResponse(m manifest.Manifest) api.FileListResponse {
	files := make([]api.FileMetadata, 0, len(m))
	for filename, entry := range m {
		files = append(files, api.FileMetadata{
			Filename:       filename,
			DocumentID:     entry.DocumentID,
			SizeBytes:      entry.SizeBytes,
			TotalChunks:    entry.TotalChunks,
			LastIngestedAt: entry.LastIngestedAt,
		})
	}
	return api.FileListResponse{Files: files}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
