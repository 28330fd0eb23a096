// Package server exposes generation, PDF extraction and export over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/studydeck/constants"
	"github.com/joseph-ayodele/studydeck/internal/common"
	"github.com/joseph-ayodele/studydeck/internal/export"
	"github.com/joseph-ayodele/studydeck/internal/generate"
	"github.com/joseph-ayodele/studydeck/internal/jobs"
	"github.com/joseph-ayodele/studydeck/internal/pdf"
)

// Generator is the generation surface the handlers call.
type Generator interface {
	Analyze(ctx context.Context, transcript string, lang constants.Language) (generate.Analysis, error)
	GenerateFlashcards(ctx context.Context, req generate.FlashcardRequest, onProgress generate.ProgressFunc) (generate.FlashcardSet, error)
	GenerateMCQs(ctx context.Context, req generate.MCQRequest, onProgress generate.ProgressFunc) (generate.MCQSet, error)
}

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Generator      Generator
	PDF            *pdf.Service
	Store          jobs.Store
	Export         *export.Service
	Limits         common.LimitsConfig
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

type handlers struct {
	gen      Generator
	pdf      *pdf.Service
	store    jobs.Store
	export   *export.Service
	maxBytes int64
	logger   *slog.Logger
}

// NewRouter creates the API router with all routes configured.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 5 * time.Minute
	}
	h := &handlers{
		gen:      d.Generator,
		pdf:      d.PDF,
		store:    d.Store,
		export:   d.Export,
		maxBytes: d.Limits.MaxFileSizeBytes(),
		logger:   d.Logger,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/pdf-extract", h.uploadPDF)
		r.Get("/pdf-extract/status/{jobId}", h.pdfStatus)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(d.RequestTimeout))
			r.Post("/analyze", h.analyze)
			r.Post("/flashcards", h.flashcards)
			r.Post("/mcqs", h.mcqs)
		})
		r.Post("/mcqs/grade", h.gradeMCQs)

		r.Route("/export", func(r chi.Router) {
			r.Post("/flashcards", h.exportFlashcards)
			r.Post("/mcqs", h.exportMCQs)
		})
	})

	return r
}

// requestLogger copies chi's request id into the context, attaches a request-scoped logger
// and logs one line per request.
func requestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := chimiddleware.GetReqID(r.Context())
			log := base.With("req_id", reqID)

			ctx := common.WithRequestID(r.Context(), reqID)
			ctx = common.WithLogger(ctx, log)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			log.Info("http.request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	available := h.store != nil && h.store.Available()
	if !available {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status, "store": available})
}
