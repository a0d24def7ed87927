package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skillbase-io/skillbase/internal/apperrors"
	"github.com/skillbase-io/skillbase/internal/document"
	"github.com/skillbase-io/skillbase/internal/jobqueue"
	"github.com/skillbase-io/skillbase/internal/models"
)

type DocumentHandler struct {
	docs        *document.Service
	queue       *jobqueue.Queue
	maxBodySize int64
}

func NewDocumentHandler(docs *document.Service, queue *jobqueue.Queue, maxFileSizeMB int) *DocumentHandler {
	return &DocumentHandler{
		docs:        docs,
		queue:       queue,
		maxBodySize: int64(maxFileSizeMB) << 20,
	}
}

// Upload accepts a multipart file for a skill and answers 202 with the
// queued job. Ingestion itself happens asynchronously.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	if err := r.ParseMultipartForm(h.maxBodySize); err != nil {
		writeError(w, apperrors.Validation("invalid multipart form or file too large"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperrors.Validation("file field is required"))
		return
	}
	defer file.Close()

	job, err := h.docs.Upload(r.Context(), chi.URLParam(r, "skillID"), header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

func (h *DocumentHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, apperrors.Validation("invalid job id"))
		return
	}

	job, err := h.queue.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *DocumentHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	status := models.JobStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.JobStatusPending, models.JobStatusProcessing,
		models.JobStatusCompleted, models.JobStatusFailed:
	default:
		writeError(w, apperrors.Validation("invalid status filter"))
		return
	}

	jobs, err := h.queue.ListBySkill(r.Context(), chi.URLParam(r, "skillID"), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}
