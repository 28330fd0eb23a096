package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/studydeck/constants"
	"github.com/joseph-ayodele/studydeck/internal/async"
	"github.com/joseph-ayodele/studydeck/internal/common"
	"github.com/joseph-ayodele/studydeck/internal/export"
	"github.com/joseph-ayodele/studydeck/internal/generate"
	"github.com/joseph-ayodele/studydeck/internal/jobs"
	"github.com/joseph-ayodele/studydeck/internal/pdf"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeGenerator struct {
	err       error
	lastCards generate.FlashcardRequest
	lastMCQs  generate.MCQRequest
}

func (f *fakeGenerator) Analyze(_ context.Context, transcript string, lang constants.Language) (generate.Analysis, error) {
	if f.err != nil {
		return generate.Analysis{}, f.err
	}
	return generate.Analysis{Subject: "Biology (" + string(lang) + ")", Outline: []string{"Cells"}}, nil
}

func (f *fakeGenerator) GenerateFlashcards(_ context.Context, req generate.FlashcardRequest, onProgress generate.ProgressFunc) (generate.FlashcardSet, error) {
	f.lastCards = req
	if f.err != nil {
		return generate.FlashcardSet{}, f.err
	}
	onProgress(1, 1)
	cards := make([]generate.Flashcard, req.Count)
	for i := range cards {
		cards[i] = generate.Flashcard{Question: fmt.Sprintf("q%d", i), Answer: fmt.Sprintf("a%d", i)}
	}
	return generate.FlashcardSet{
		Flashcards: cards,
		Meta:       generate.GenerationMeta{Requested: req.Count, Delivered: req.Count, Batches: 1, BatchesSucceeded: 1},
	}, nil
}

func (f *fakeGenerator) GenerateMCQs(_ context.Context, req generate.MCQRequest, _ generate.ProgressFunc) (generate.MCQSet, error) {
	f.lastMCQs = req
	if f.err != nil {
		return generate.MCQSet{}, f.err
	}
	return generate.MCQSet{
		MCQs: []generate.MCQ{{Question: "q", A: "1", B: "2", C: "3", D: "4", Correct: "B"}},
		Meta: generate.GenerationMeta{Requested: req.Count, Delivered: 1, Batches: 1, BatchesSucceeded: 1, Truncated: req.Count > 1},
	}, nil
}

// fakeQueue accepts tasks without running them, or rejects them with err.
type fakeQueue struct {
	mu    sync.Mutex
	tasks []async.Task
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, task async.Task) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

type extractorFunc func(ctx context.Context, data []byte) (pdf.Extraction, error)

func (f extractorFunc) ExtractText(ctx context.Context, data []byte) (pdf.Extraction, error) {
	return f(ctx, data)
}

type testEnv struct {
	handler http.Handler
	gen     *fakeGenerator
	kv      *jobs.MemoryKV
	store   jobs.Store
	queue   *fakeQueue
}

func newTestEnv(t *testing.T, store jobs.Store) *testEnv {
	t.Helper()
	kv := jobs.NewMemoryKV()
	if store == nil {
		store = jobs.NewKVStore(kv, jobs.WithLogger(quietLogger()))
	}
	gen := &fakeGenerator{}
	queue := &fakeQueue{}
	extractor := extractorFunc(func(context.Context, []byte) (pdf.Extraction, error) {
		return pdf.Extraction{Text: "lecture", Pages: 1}, nil
	})
	worker := pdf.NewWorker(store, extractor, quietLogger())
	limits := common.LimitsConfig{MaxFileSizeMB: 1, MinWordCount: 1, MaxWordCount: 100, TranscriptWordThreshold: 100}

	h := NewRouter(Deps{
		Generator: gen,
		PDF:       pdf.NewService(store, queue, worker, limits.MaxFileSizeBytes(), quietLogger()),
		Store:     store,
		Export:    export.NewService(quietLogger()),
		Limits:    limits,
		Logger:    quietLogger(),
	})
	return &testEnv{handler: h, gen: gen, kv: kv, store: store, queue: queue}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func multipartUpload(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartUpload(t, filename, contentType, data)
	req := httptest.NewRequest(http.MethodPost, "/api/pdf-extract", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		store  jobs.Store
		status string
		ok     bool
	}{
		{name: "store available", status: "ok", ok: true},
		{name: "store unavailable", store: jobs.Unavailable{Reason: errors.New("REDIS_ADDR is not set")}, status: "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, tt.store)
			rec := env.do(t, http.MethodGet, "/healthz", nil)

			require.Equal(t, http.StatusOK, rec.Code)
			var body struct {
				Status string `json:"status"`
				Store  bool   `json:"store"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, tt.ok, body.Store)
		})
	}
}

func TestPDFStatus(t *testing.T) {
	t.Parallel()

	t.Run("store unavailable", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, jobs.Unavailable{})
		rec := env.do(t, http.MethodGet, "/api/pdf-extract/status/abc", nil)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "KV Store not available", errorBody(t, rec))
	})

	t.Run("unknown job", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil)
		rec := env.do(t, http.MethodGet, "/api/pdf-extract/status/missing", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Job not found", errorBody(t, rec))
	})

	t.Run("corrupted record", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil)
		require.NoError(t, env.kv.Set(context.Background(), constants.JobKeyPrefix+"bad", []byte("{not json"), 0))
		rec := env.do(t, http.MethodGet, "/api/pdf-extract/status/bad", nil)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to process job status due to corrupted data.", errorBody(t, rec))
	})

	t.Run("backend lost after startup", func(t *testing.T) {
		t.Parallel()
		kv, err := jobs.NewSQLiteKV(context.Background(), ":memory:")
		require.NoError(t, err)
		require.NoError(t, kv.Close())
		env := newTestEnv(t, jobs.NewKVStore(kv, jobs.WithLogger(quietLogger())))

		rec := env.do(t, http.MethodGet, "/api/pdf-extract/status/abc", nil)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "KV Store not available", errorBody(t, rec))
	})

	t.Run("existing job", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil)
		now := time.Now()
		job, err := jobs.NewJob("job-7", now).Advance(30, now)
		require.NoError(t, err)
		require.NoError(t, env.store.Set(context.Background(), job))

		rec := env.do(t, http.MethodGet, "/api/pdf-extract/status/job-7", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var got jobs.Job
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "job-7", got.ID)
		assert.Equal(t, constants.JobStatusProcessing, got.Status)
		assert.Equal(t, 30, got.Progress)
	})
}

func TestUploadPDF(t *testing.T) {
	t.Parallel()

	valid := []byte("%PDF-1.7\n% body")
	tests := []struct {
		name        string
		filename    string
		contentType string
		data        []byte
		status      int
		message     string
	}{
		{
			name: "wrong extension", filename: "notes.txt", contentType: "application/pdf", data: valid,
			status: http.StatusBadRequest, message: "Invalid file extension. Only PDF files (.pdf) are allowed.",
		},
		{
			name: "wrong content type", filename: "notes.pdf", contentType: "text/plain", data: valid,
			status: http.StatusBadRequest, message: "Invalid file type. Only PDF is allowed.",
		},
		{
			name: "missing signature", filename: "notes.pdf", contentType: "application/pdf", data: []byte("hello"),
			status: http.StatusBadRequest, message: "Invalid PDF file content. The file does not appear to be a valid PDF.",
		},
		{
			name: "too large", filename: "notes.pdf", contentType: "application/pdf",
			data:   append([]byte("%PDF-"), bytes.Repeat([]byte("x"), 1<<20)...),
			status: http.StatusRequestEntityTooLarge, message: "File exceeds maximum size limit of 1MB.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, nil)
			rec := env.upload(t, tt.filename, tt.contentType, tt.data)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, errorBody(t, rec))
			assert.Empty(t, env.queue.tasks)
		})
	}
}

func TestUploadPDFQueuesJob(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	rec := env.upload(t, "Lecture.PDF", "application/pdf", []byte("%PDF-1.4 body"))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	id := body["jobId"]
	require.NotEmpty(t, id)
	require.Len(t, env.queue.tasks, 1)

	job, err := env.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusProcessing, job.Status)
	assert.Equal(t, 0, job.Progress)

	require.NoError(t, env.queue.tasks[0].Run(context.Background()))
	rec = env.do(t, http.MethodGet, "/api/pdf-extract/status/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var done jobs.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &done))
	assert.Equal(t, constants.JobStatusCompleted, done.Status)
	assert.Equal(t, "lecture", done.Result)
}

func TestUploadPDFRejections(t *testing.T) {
	t.Parallel()

	t.Run("no file field", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/pdf-extract", strings.NewReader("plain body"))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No file uploaded.", errorBody(t, rec))
	})

	t.Run("store unavailable", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, jobs.Unavailable{})
		rec := env.upload(t, "a.pdf", "application/pdf", []byte("%PDF-1.4"))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "KV Store not available", errorBody(t, rec))
	})

	t.Run("queue full", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil)
		env.queue.err = async.ErrQueueFull
		rec := env.upload(t, "a.pdf", "application/pdf", []byte("%PDF-1.4"))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "PDF extraction queue is full, try again later", errorBody(t, rec))
	})
}

func TestAnalyze(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/analyze", map[string]string{"transcript": "words", "language": "fr"})

	require.Equal(t, http.StatusOK, rec.Code)
	var got generate.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Biology (fr)", got.Subject)
	assert.Equal(t, []string{"Cells"}, got.Outline)
}

func TestFlashcardsPassesRequestThrough(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/flashcards", map[string]any{
		"courseData":         map[string]any{"subject": "Biology", "outline": []string{"Cells"}},
		"transcript":         "cells divide",
		"count":              3,
		"language":           "en",
		"difficulty":         4,
		"existingFlashcards": []map[string]string{{"question": "old", "answer": "x"}},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var got generate.FlashcardSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Flashcards, 3)
	assert.Equal(t, 3, got.Meta.Delivered)

	req := env.gen.lastCards
	assert.Equal(t, "Biology", req.Course.Subject)
	assert.Equal(t, 4, req.Difficulty)
	assert.Equal(t, constants.LanguageEnglish, req.Language)
	assert.Equal(t, []generate.Flashcard{{Question: "old", Answer: "x"}}, req.Existing)
}

func TestMCQsReportsTruncation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/mcqs", map[string]any{
		"courseData": map[string]any{"subject": "Biology"},
		"transcript": "cells divide",
		"count":      4,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mcqs":[`)
	assert.Contains(t, rec.Body.String(), `"truncated":true`)
	assert.Equal(t, 4, env.gen.lastMCQs.Count)
}

func TestGenerationErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", common.ValidationError("count must be between 1 and 100", nil), http.StatusBadRequest, "count must be between 1 and 100"},
		{"configuration", common.ConfigurationError("OPENAI_API_KEY is required", nil), http.StatusInternalServerError, "API key configuration error"},
		{"parse", common.ParseError("could not parse model response", nil), http.StatusBadGateway, "could not parse model response"},
		{"transport", common.TransportError("model provider request failed", errors.New("dial tcp")), http.StatusBadGateway, "model provider request failed"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, nil)
			env.gen.err = tt.err

			for _, path := range []string{"/api/analyze", "/api/flashcards", "/api/mcqs"} {
				rec := env.do(t, http.MethodPost, path, map[string]any{"transcript": "x", "count": 1})
				assert.Equal(t, tt.status, rec.Code, path)
				assert.Equal(t, tt.message, errorBody(t, rec), path)
			}
		})
	}
}

func TestGenerationRejectsBadBodies(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	for _, tt := range []struct {
		name, body, message string
	}{
		{"empty", "", "request body is required"},
		{"malformed", "{", "invalid JSON body"},
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/flashcards", strings.NewReader(tt.body))
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.name)
		assert.Equal(t, tt.message, errorBody(t, rec), tt.name)
	}
}

func TestGradeMCQs(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	qs := []generate.MCQ{
		{Question: "q1", A: "1", B: "2", C: "3", D: "4", Correct: "B"},
		{Question: "q2", A: "1", B: "2", C: "3", D: "4", Correct: "D"},
	}

	rec := env.do(t, http.MethodPost, "/api/mcqs/grade", map[string]any{"mcqs": qs, "selections": []string{"b", "A"}})

	require.Equal(t, http.StatusOK, rec.Code)
	var got gradeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Score)
	assert.Equal(t, 2, got.Total)
	require.NotNil(t, got.MCQs[0].IsCorrect)
	assert.True(t, *got.MCQs[0].IsCorrect)
	require.NotNil(t, got.MCQs[1].IsCorrect)
	assert.False(t, *got.MCQs[1].IsCorrect)

	rec = env.do(t, http.MethodPost, "/api/mcqs/grade", map[string]any{"mcqs": qs, "selections": []string{"B"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "got 1 selections for 2 questions", errorBody(t, rec))
}

func TestExportFlashcards(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/export/flashcards", map[string]any{
		"flashcards": []generate.Flashcard{{Question: "What is ATP?", Answer: "Energy currency"}},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="flashcards-`)

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "What is ATP?", rows[1][0])
}

func TestExportRejectsEmptyDeck(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/export/mcqs", map[string]any{"mcqs": []generate.MCQ{}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
