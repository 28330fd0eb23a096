package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/studydeck/constants"
	"github.com/joseph-ayodele/studydeck/internal/common"
	"github.com/joseph-ayodele/studydeck/internal/llm"
)

// scriptedInvoker answers each call with the next scripted reply.
type scriptedInvoker struct {
	mu      sync.Mutex
	replies []func(prompt string) (string, error)
	prompts []string
	opts    []llm.InvokeOptions
}

func (s *scriptedInvoker) Invoke(_ context.Context, prompt string, opts llm.InvokeOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	s.opts = append(s.opts, opts)
	if i >= len(s.replies) {
		return "", fmt.Errorf("unexpected call %d", i+1)
	}
	return s.replies[i](prompt)
}

func (s *scriptedInvoker) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func reply(body string) func(string) (string, error) {
	return func(string) (string, error) { return body, nil }
}

func fail(err error) func(string) (string, error) {
	return func(string) (string, error) { return "", err }
}

func cardsJSON(batch, n int) string {
	cards := make([]Flashcard, 0, n)
	for i := 1; i <= n; i++ {
		cards = append(cards, Flashcard{
			Question: fmt.Sprintf("b%d-q%d", batch, i),
			Answer:   fmt.Sprintf("b%d-a%d", batch, i),
		})
	}
	b, _ := json.Marshal(flashcardEnvelope{Flashcards: cards})
	return string(b)
}

func questionsJSON(n int) string {
	qs := make([]MCQ, 0, n)
	for i := 1; i <= n; i++ {
		qs = append(qs, MCQ{Question: fmt.Sprintf("q%d", i), A: "a", B: "b", C: "c", D: "d", Correct: "C"})
	}
	b, _ := json.Marshal(questionEnvelope{Questions: qs})
	return string(b)
}

var testLimits = common.LimitsConfig{MinWordCount: 5, MaxWordCount: 1000, TranscriptWordThreshold: 50}

func transcript(words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func newTestService(inv llm.Invoker) *Service {
	return NewService(inv, testLimits, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func flashcardRequest(count, difficulty int) FlashcardRequest {
	return FlashcardRequest{
		Course:     CourseData{Subject: "Biology", Outline: []string{"Cells"}},
		Transcript: transcript(20),
		Count:      count,
		Difficulty: difficulty,
		Language:   constants.LanguageEnglish,
	}
}

type progressCall struct{ batch, total int }

func recordProgress() (*[]progressCall, ProgressFunc) {
	var calls []progressCall
	return &calls, func(b, t int) { calls = append(calls, progressCall{b, t}) }
}

func TestChunkSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		difficulty, count, want int
	}{
		{5, 12, 5},
		{5, 3, 3},
		{4, 20, 7},
		{4, 6, 6},
		{3, 40, 40},
		{1, 8, 8},
		{0, 8, 8},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("d%d_n%d", tt.difficulty, tt.count), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ChunkSize(tt.difficulty, tt.count))
		})
	}
}

func TestGenerateFlashcardsBatchesHardRequests(t *testing.T) {
	t.Parallel()

	inv := &scriptedInvoker{replies: []func(string) (string, error){
		reply(cardsJSON(1, 5)), reply(cardsJSON(2, 5)), reply(cardsJSON(3, 2)),
	}}
	progress, onProgress := recordProgress()

	set, err := newTestService(inv).GenerateFlashcards(context.Background(), flashcardRequest(12, 5), onProgress)

	require.NoError(t, err)
	assert.Len(t, set.Flashcards, 12)
	assert.Equal(t, []progressCall{{1, 3}, {2, 3}, {3, 3}}, *progress)
	assert.Equal(t, GenerationMeta{Requested: 12, Delivered: 12, Batches: 3, BatchesSucceeded: 3}, set.Meta)

	require.Equal(t, 3, inv.calls())
	assert.Contains(t, inv.prompts[0], "create 5 flashcards")
	assert.Contains(t, inv.prompts[1], "create 5 flashcards")
	assert.Contains(t, inv.prompts[2], "create 2 flashcards")
	assert.NotContains(t, inv.prompts[0], "already exist")
	assert.Contains(t, inv.prompts[1], "- b1-q5")
	assert.Contains(t, inv.prompts[2], "- b2-q3")
	assert.Equal(t, "b3-q2", set.Flashcards[11].Question)
}

func TestGenerateFlashcardsSendsCallerExistingCards(t *testing.T) {
	t.Parallel()

	inv := &scriptedInvoker{replies: []func(string) (string, error){reply(cardsJSON(1, 2))}}
	req := flashcardRequest(2, 3)
	req.Existing = []Flashcard{{Question: "What is a ribosome?", Answer: "x"}}

	_, err := newTestService(inv).GenerateFlashcards(context.Background(), req, nil)

	require.NoError(t, err)
	assert.Contains(t, inv.prompts[0], "- What is a ribosome?")
}

func TestGenerateFlashcardsSingleCallHasNoProgress(t *testing.T) {
	t.Parallel()

	inv := &scriptedInvoker{replies: []func(string) (string, error){reply(cardsJSON(1, 8))}}
	progress, onProgress := recordProgress()

	set, err := newTestService(inv).GenerateFlashcards(context.Background(), flashcardRequest(8, 2), onProgress)

	require.NoError(t, err)
	assert.Len(t, set.Flashcards, 8)
	assert.Empty(t, *progress)
	assert.Equal(t, 1, inv.calls())
	assert.Contains(t, inv.prompts[0], "create 8 flashcards")
	assert.Equal(t, llm.PolicyFor(constants.OperationFlashcard), inv.opts[0])
	assert.False(t, set.Meta.Truncated)
}

func TestGenerateFlashcardsClampsOutOfRangeDifficulty(t *testing.T) {
	t.Parallel()

	inv := &scriptedInvoker{replies: []func(string) (string, error){
		reply(cardsJSON(1, 5)), reply(cardsJSON(2, 2)),
	}}
	progress, onProgress := recordProgress()

	set, err := newTestService(inv).GenerateFlashcards(context.Background(), flashcardRequest(7, 9), onProgress)

	require.NoError(t, err)
	assert.Len(t, set.Flashcards, 7)
	assert.Equal(t, []progressCall{{1, 2}, {2, 2}}, *progress)
	require.Equal(t, 2, inv.calls())
	assert.Contains(t, inv.prompts[0], "create 5 flashcards")
	assert.Contains(t, inv.prompts[1], "create 2 flashcards")
}

func TestGenerateFlashcardsKeepsPartialResult(t *testing.T) {
	t.Parallel()

	inv := &scriptedInvoker{replies: []func(string) (string, error){
		reply(cardsJSON(1, 5)),
		fail(common.TransportError("provider returned 500", nil)),
		reply(cardsJSON(3, 2)),
	}}

	set, err := newTestService(inv).GenerateFlashcards(context.Background(), flashcardRequest(12, 5), nil)

	require.NoError(t, err)
	assert.Len(t, set.Flashcards, 5)
	assert.Equal(t, 2, inv.calls(), "no batch runs after a failure")
	assert.Equal(t, GenerationMeta{Requested: 12, Delivered: 5, Batches: 2, BatchesSucceeded: 1, Truncated: true}, set.Meta)
}

func TestGenerateFlashcardsFirstBatchFailureIsReturned(t *testing.T) {
	t.Parallel()

	cause := common.TransportError("connection refused", nil)
	inv := &scriptedInvoker{replies: []func(string) (string, error){fail(cause)}}

	_, err := newTestService(inv).GenerateFlashcards(context.Background(), flashcardRequest(12, 5), nil)

	require.Error(t, err)
	assert.Same(t, cause, err)
	assert.ErrorIs(t, err, common.ErrTransport)
	assert.Equal(t, 1, inv.calls())
}

func TestGenerateFlashcardsUnparseableBatchFails(t *testing.T) {
	t.Parallel()

	inv := &scriptedInvoker{replies: []func(string) (string, error){reply("I cannot do that.")}}

	_, err := newTestService(inv).GenerateFlashcards(context.Background(), flashcardRequest(3, 3), nil)

	assert.ErrorIs(t, err, common.ErrParse)
}

func TestGenerateFlashcardsValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*FlashcardRequest)
	}{
		{"zero count", func(r *FlashcardRequest) { r.Count = 0 }},
		{"too many", func(r *FlashcardRequest) { r.Count = constants.MaxItemCount + 1 }},
		{"missing subject", func(r *FlashcardRequest) { r.Course.Subject = " " }},
		{"short transcript", func(r *FlashcardRequest) { r.Transcript = "too short" }},
		{"long transcript", func(r *FlashcardRequest) { r.Transcript = transcript(1001) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			inv := &scriptedInvoker{}
			req := flashcardRequest(4, 3)
			tt.mutate(&req)

			_, err := newTestService(inv).GenerateFlashcards(context.Background(), req, nil)

			assert.ErrorIs(t, err, common.ErrValidation)
			assert.Zero(t, inv.calls())
		})
	}
}

func TestTranscriptIsTruncatedToThreshold(t *testing.T) {
	t.Parallel()

	inv := &scriptedInvoker{replies: []func(string) (string, error){reply(cardsJSON(1, 1))}}
	req := flashcardRequest(1, 3)
	req.Transcript = transcript(80)

	_, err := newTestService(inv).GenerateFlashcards(context.Background(), req, nil)

	require.NoError(t, err)
	assert.Contains(t, inv.prompts[0], "w49")
	assert.NotContains(t, inv.prompts[0], "w50")
}

func TestGenerateMCQsBatchesAndNormalizes(t *testing.T) {
	t.Parallel()

	inv := &scriptedInvoker{replies: []func(string) (string, error){
		reply(questionsJSON(7)),
		reply("```json\n" + `{"questions": [{"question": "q8", "A": "a", "B": "b", "C": "c", "D": "d", "correct": "b"},]}` + "\n```"),
	}}
	progress, onProgress := recordProgress()

	set, err := newTestService(inv).GenerateMCQs(context.Background(), MCQRequest{
		Course:     CourseData{Subject: "Physics"},
		Transcript: transcript(30),
		Count:      10,
		Difficulty: 4,
	}, onProgress)

	require.NoError(t, err)
	assert.Equal(t, []progressCall{{1, 2}, {2, 2}}, *progress)
	assert.Contains(t, inv.prompts[0], "create 7 multiple choice questions")
	assert.Contains(t, inv.prompts[1], "create 3 multiple choice questions")
	assert.Equal(t, llm.PolicyFor(constants.OperationMCQ), inv.opts[1])
	require.Len(t, set.MCQs, 8)
	assert.Equal(t, "B", set.MCQs[7].Correct)
	assert.True(t, set.Meta.Truncated)

	b, err := json.Marshal(set)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"mcqs":[`)
	assert.Contains(t, string(b), `"meta":{"requested":10,"delivered":8`)
}

func TestAnalyzeRecoversSloppyJSON(t *testing.T) {
	t.Parallel()

	inv := &scriptedInvoker{replies: []func(string) (string, error){
		reply("```json\n{subject: 'Organic Chemistry', outline: ['Alkanes', 'Alkenes',]}\n```"),
	}}

	got, err := newTestService(inv).Analyze(context.Background(), transcript(10), constants.LanguageFrench)

	require.NoError(t, err)
	assert.Equal(t, "Organic Chemistry", got.Subject)
	assert.Equal(t, []string{"Alkanes", "Alkenes"}, got.Outline)
	assert.Equal(t, llm.PolicyFor(constants.OperationAnalyze), inv.opts[0])
	assert.Contains(t, inv.prompts[0], "Répondez en français.")
}

func TestAnalyzeConfigurationErrorPassesThrough(t *testing.T) {
	t.Parallel()

	inv := llm.InvokerFunc(func(context.Context, string, llm.InvokeOptions) (string, error) {
		return "", common.ConfigurationError("OPENAI_API_KEY is required", nil)
	})

	_, err := newTestService(inv).Analyze(context.Background(), transcript(10), constants.LanguageEnglish)

	assert.True(t, errors.Is(err, common.ErrConfiguration))
}
