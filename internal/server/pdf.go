package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/studydeck/internal/async"
	"github.com/joseph-ayodele/studydeck/internal/common"
	"github.com/joseph-ayodele/studydeck/internal/pdf"
)

const (
	msgStoreUnavailable = "KV Store not available"
	msgJobNotFound      = "Job not found"
	msgJobCorrupted     = "Failed to process job status due to corrupted data."
	msgNoFile           = "No file uploaded."
)

// multipart framing allowance on top of the file limit
const multipartOverhead = 1 << 20

func (h *handlers) uploadPDF(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), h.logger)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeAppError(w, log, common.TooLargeError(
				fmt.Sprintf("File exceeds maximum size limit of %dMB.", h.maxBytes/(1024*1024))))
			return
		}
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		writeAppError(w, log, common.ValidationError("Failed to validate PDF content. Please ensure you are uploading a valid PDF file.", err))
		return
	}

	id, err := h.pdf.Submit(r.Context(), pdf.Upload{
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        hdr.Size,
		Data:        data,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"jobId": id})
	case errors.Is(err, async.ErrQueueFull):
		log.Warn("pdf.upload.rejected", "error", err)
		writeError(w, http.StatusServiceUnavailable, "PDF extraction queue is full, try again later")
	case errors.Is(err, common.ErrUnavailable):
		log.Warn("pdf.upload.rejected", "error", err)
		writeError(w, http.StatusServiceUnavailable, msgStoreUnavailable)
	default:
		writeAppError(w, log, err)
	}
}

func (h *handlers) pdfStatus(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), h.logger)
	jobID := chi.URLParam(r, "jobId")

	if h.store == nil || !h.store.Available() {
		writeError(w, http.StatusServiceUnavailable, msgStoreUnavailable)
		return
	}

	job, err := h.store.Get(r.Context(), jobID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, job)
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, msgJobNotFound)
	case errors.Is(err, common.ErrCorrupted):
		log.Error("pdf.status.corrupted", "job_id", jobID, "error", err)
		writeError(w, http.StatusInternalServerError, msgJobCorrupted)
	case errors.Is(err, common.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, msgStoreUnavailable)
	default:
		log.Error("pdf.status.failed", "job_id", jobID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch job status")
	}
}
