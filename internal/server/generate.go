package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/studydeck/constants"
	"github.com/joseph-ayodele/studydeck/internal/common"
	"github.com/joseph-ayodele/studydeck/internal/generate"
)

type analyzeRequest struct {
	Transcript string `json:"transcript"`
	Language   string `json:"language"`
}

type flashcardsRequest struct {
	CourseData         generate.CourseData  `json:"courseData"`
	Transcript         string               `json:"transcript"`
	Count              int                  `json:"count"`
	Language           string               `json:"language"`
	Difficulty         int                  `json:"difficulty"`
	ExistingFlashcards []generate.Flashcard `json:"existingFlashcards"`
}

type mcqsRequest struct {
	CourseData generate.CourseData `json:"courseData"`
	Transcript string              `json:"transcript"`
	Count      int                 `json:"count"`
	Language   string              `json:"language"`
	Difficulty int                 `json:"difficulty"`
}

type gradeRequest struct {
	MCQs       []generate.MCQ `json:"mcqs"`
	Selections []string       `json:"selections"`
}

type gradeResponse struct {
	MCQs  []generate.MCQ `json:"mcqs"`
	Score int            `json:"score"`
	Total int            `json:"total"`
}

func (h *handlers) analyze(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), h.logger)
	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, log, err)
		return
	}

	out, err := h.gen.Analyze(r.Context(), req.Transcript, constants.ParseLanguage(req.Language))
	if err != nil {
		writeAppError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) flashcards(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), h.logger)
	var req flashcardsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, log, err)
		return
	}

	set, err := h.gen.GenerateFlashcards(r.Context(), generate.FlashcardRequest{
		Course:     req.CourseData,
		Transcript: req.Transcript,
		Count:      req.Count,
		Difficulty: req.Difficulty,
		Language:   constants.ParseLanguage(req.Language),
		Existing:   req.ExistingFlashcards,
	}, progressLogger(log, constants.OperationFlashcard))
	if err != nil {
		writeAppError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (h *handlers) mcqs(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), h.logger)
	var req mcqsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, log, err)
		return
	}

	set, err := h.gen.GenerateMCQs(r.Context(), generate.MCQRequest{
		Course:     req.CourseData,
		Transcript: req.Transcript,
		Count:      req.Count,
		Difficulty: req.Difficulty,
		Language:   constants.ParseLanguage(req.Language),
	}, progressLogger(log, constants.OperationMCQ))
	if err != nil {
		writeAppError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (h *handlers) gradeMCQs(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), h.logger)
	var req gradeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, log, err)
		return
	}
	if len(req.MCQs) == 0 {
		writeAppError(w, log, common.ValidationError("mcqs must not be empty", nil))
		return
	}
	if len(req.Selections) != len(req.MCQs) {
		writeAppError(w, log, common.ValidationError(
			fmt.Sprintf("got %d selections for %d questions", len(req.Selections), len(req.MCQs)), nil))
		return
	}

	graded := make([]generate.MCQ, len(req.MCQs))
	for i, q := range req.MCQs {
		graded[i] = generate.GradeMCQ(q, req.Selections[i])
	}
	writeJSON(w, http.StatusOK, gradeResponse{MCQs: graded, Score: generate.Score(graded), Total: len(graded)})
}

func progressLogger(log *slog.Logger, op constants.Operation) generate.ProgressFunc {
	return func(batch, total int) {
		log.Info("generate.progress", "op", op, "batch", batch, "total", total)
	}
}
