package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/joseph-ayodele/studydeck/internal/common"
	"github.com/joseph-ayodele/studydeck/internal/export"
	"github.com/joseph-ayodele/studydeck/internal/generate"
)

type exportFlashcardsRequest struct {
	Flashcards []generate.Flashcard `json:"flashcards"`
}

type exportMCQsRequest struct {
	MCQs []generate.MCQ `json:"mcqs"`
}

func (h *handlers) exportFlashcards(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), h.logger)
	var req exportFlashcardsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, log, err)
		return
	}
	b, err := h.export.FlashcardsXLSX(req.Flashcards)
	if err != nil {
		writeAppError(w, log, err)
		return
	}
	writeXLSX(w, "flashcards", b)
}

func (h *handlers) exportMCQs(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), h.logger)
	var req exportMCQsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, log, err)
		return
	}
	b, err := h.export.MCQsXLSX(req.MCQs)
	if err != nil {
		writeAppError(w, log, err)
		return
	}
	writeXLSX(w, "mcqs", b)
}

func writeXLSX(w http.ResponseWriter, name string, b []byte) {
	w.Header().Set("Content-Type", export.XLSXContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s-%s.xlsx"`, name, time.Now().UTC().Format("20060102")))
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
