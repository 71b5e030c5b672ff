package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/CompassAPI/internal/adapter"
	"github.com/akolanti/CompassAPI/internal/adapter/utils"
	"github.com/akolanti/CompassAPI/internal/api"
	"github.com/akolanti/CompassAPI/internal/config"
	"github.com/akolanti/CompassAPI/internal/rag/extract"
	"github.com/akolanti/CompassAPI/internal/rag/manifest"
	"github.com/akolanti/CompassAPI/pkg/logger_i"
)

var logRH *logger_i.Logger

type newJobData struct {
	id        string
	traceId   string
	fileNames []string
	filePaths []string
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

// AskHandler answers a question synchronously. Degraded pipeline outcomes
// (empty query, no context) still come back 200 with a structured payload.
func AskHandler(w http.ResponseWriter, request *http.Request) {

	if validateContext(request.Context()) {

		var requestData api.AskRequest
		defer func(Body io.ReadCloser) {
			err := Body.Close()
			if err != nil {
				logRH.Error("Couldn't close the Ask handler reader :", "error", err)
			}
		}(request.Body)
		if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil {
			logRH.Warn("Bad Ask Request: ", "error:", err)
			WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
			return
		}

		payload, err := handlerInstance.ragService.Answer(request.Context(), requestData.Query, requestData.Mode, requestData.Filters)
		if err != nil {
			logRH.Error("Ask pipeline failed", "error", err)
			WriteErrorResponse(w, http.StatusInternalServerError, "", "Internal Server Error")
			return
		}
		writeJsonResponse(w, http.StatusOK, adapter.ToAskResponse(payload))
		return
	}
	logRH.Warn("Invalid Context by request ", request.RemoteAddr)
}

// RefreshHandler scans the corpus directory and ingests what changed. Runs
// inline so the caller gets the sync summary back.
func RefreshHandler(w http.ResponseWriter, request *http.Request) {
	if validateContext(request.Context()) {

		var requestData api.RefreshRequest
		if request.Body != nil {
			defer request.Body.Close()
			// an empty body means force=false
			_ = json.NewDecoder(request.Body).Decode(&requestData)
		}

		summary, err := handlerInstance.ragService.Refresh(request.Context(), requestData.Force)
		if err != nil {
			logRH.Error("Refresh failed", "error", err)
			WriteErrorResponse(w, http.StatusInternalServerError, "", "Internal Server Error")
			return
		}
		writeJsonResponse(w, http.StatusOK, adapter.ToRefreshResponse(summary))
		return
	}
	logRH.Warn("Invalid Context by request ", request.RemoteAddr)
}

// GetStatusHandler retrieves the current status of an ingest job by id.
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		idString := utils.GetChiURLParam(r, "id")
		result, isFound := validateId(idString, traceIdFrom(r))

		logRH.Debug("Get Status Request:", "URL path", r.URL.Path)
		if !isFound {
			WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
			return
		}

		writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
	}
}

// UploadHandler receives one or more files via multipart/form-data, saves
// the allowed ones into the corpus directory and queues a single ingest job.
func UploadHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {

		const maxUploadSize = 32 << 20 //32mb
		err := r.ParseMultipartForm(maxUploadSize)
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
			return
		}

		fileHeaders := r.MultipartForm.File["documents"]
		if len(fileHeaders) == 0 {
			WriteErrorResponse(w, http.StatusBadRequest, "", "No documents in request")
			return
		}

		targetDir := config.CorpusDir()
		if err := os.MkdirAll(targetDir, 0750); err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
			return
		}

		allowed := config.AllowedExtensionSet()
		var savedNames, savedPaths []string
		for _, header := range fileHeaders {
			base := filepath.Base(header.Filename)
			ext := strings.ToLower(filepath.Ext(base))
			if _, ok := allowed[ext]; !ok {
				logRH.Warn("Skipping upload with disallowed extension", "filename", base)
				continue
			}
			savedPath, err := saveUpload(header, targetDir, base)
			if err != nil {
				logRH.Error("Failed saving upload", "filename", base, "error", err)
				WriteErrorResponse(w, http.StatusInternalServerError, base, "Write error")
				return
			}
			savedNames = append(savedNames, filepath.Base(savedPath))
			savedPaths = append(savedPaths, savedPath)
		}

		if len(savedPaths) == 0 {
			WriteErrorResponse(w, http.StatusBadRequest, "", "No supported documents in request")
			return
		}

		newJob := newJobData{
			id:        utils.GetNewUUID(),
			traceId:   traceIdFrom(r),
			fileNames: savedNames,
			filePaths: savedPaths,
		}
		CreateNewJob(newJob)
		writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
		return
	}
	logRH.Warn("Invalid Context by request ", r.RemoteAddr)
}

// FilesHandler lists the ingested corpus files from the manifest.
func FilesHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		m, err := manifest.Load(config.CorpusDir())
		if err != nil {
			logRH.Error("Failed loading manifest", "error", err)
			WriteErrorResponse(w, http.StatusInternalServerError, "", "Internal Server Error")
			return
		}
		writeJsonResponse(w, http.StatusOK, adapter.ToFileListResponse(m))
	}
}

// SourceTextHandler returns the raw extracted text of one corpus file. The
// filename is confined to the corpus directory.
func SourceTextHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		filename := utils.GetChiURLParam(r, "filename")
		path, ok := corpusFilePath(filename)
		if !ok {
			WriteErrorResponse(w, http.StatusBadRequest, filename, "Invalid filename")
			return
		}

		if _, err := os.Stat(path); err != nil {
			WriteErrorResponse(w, http.StatusNotFound, filename, "File not found")
			return
		}
		text, ok := extract.Text(path)
		if !ok {
			WriteErrorResponse(w, http.StatusUnprocessableEntity, filename, "Could not extract text")
			return
		}
		writeJsonResponse(w, http.StatusOK, api.SourceTextResponse{
			Filename: filename,
			Text:     text,
		})
	}
}

func saveUpload(header *multipart.FileHeader, targetDir string, base string) (string, error) {
	fileReader, err := header.Open()
	if err != nil {
		return "", err
	}
	defer fileReader.Close()

	savedPath := filepath.Join(targetDir, base)
	if _, err := os.Stat(savedPath); err == nil {
		// keep the existing file, store the new one under a unique name
		savedPath = filepath.Join(targetDir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), base))
	}

	destinationFileWriter, err := os.Create(savedPath)
	if err != nil {
		return "", err
	}
	defer destinationFileWriter.Close()

	if _, err := io.Copy(destinationFileWriter, fileReader); err != nil {
		os.Remove(savedPath)
		return "", err
	}
	return savedPath, nil
}
