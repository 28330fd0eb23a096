package generate

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/studydeck/constants"
	"github.com/joseph-ayodele/studydeck/internal/common"
	"github.com/joseph-ayodele/studydeck/internal/llm"
	"github.com/joseph-ayodele/studydeck/internal/prompt"
	"github.com/joseph-ayodele/studydeck/internal/recovery"
)

// Service runs generation requests against one model invoker.
type Service struct {
	invoker  llm.Invoker
	pipeline *recovery.Pipeline
	limits   common.LimitsConfig
	log      *slog.Logger
}

// NewService builds a Service. A nil logger means slog.Default().
func NewService(invoker llm.Invoker, limits common.LimitsConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		invoker:  invoker,
		pipeline: recovery.NewPipeline(logger),
		limits:   limits,
		log:      logger,
	}
}

// Analyze extracts the subject and outline of a transcript.
func (s *Service) Analyze(ctx context.Context, transcript string, lang constants.Language) (Analysis, error) {
	log := requestLogger(ctx, s.log)
	text, err := s.prepareTranscript(log, transcript)
	if err != nil {
		return Analysis{}, err
	}

	p, err := prompt.Build(constants.OperationAnalyze, prompt.Params{Transcript: text, Language: lang})
	if err != nil {
		return Analysis{}, err
	}
	out, err := invokeAndDecode[Analysis](ctx, s, log, constants.OperationAnalyze, p, recovery.ShapeAnalysis)
	if err != nil {
		return Analysis{}, err
	}
	if out.Outline == nil {
		out.Outline = []string{}
	}
	return out, nil
}

// GenerateFlashcards produces req.Count flashcards, possibly over several model calls.
func (s *Service) GenerateFlashcards(ctx context.Context, req FlashcardRequest, onProgress ProgressFunc) (FlashcardSet, error) {
	log := requestLogger(ctx, s.log)
	if err := validateRequest(req.Course, req.Count); err != nil {
		return FlashcardSet{}, err
	}
	text, err := s.prepareTranscript(log, req.Transcript)
	if err != nil {
		return FlashcardSet{}, err
	}
	difficulty := constants.NormalizeDifficulty(req.Difficulty)

	state := newBatchState[Flashcard](constants.OperationFlashcard, req.Count, difficulty)
	cards, meta, err := runBatches(ctx, log, state, onProgress, func(ctx context.Context, n int, collected []Flashcard) ([]Flashcard, error) {
		p, err := prompt.Build(constants.OperationFlashcard, prompt.Params{
			Transcript: text,
			Subject:    req.Course.Subject,
			Outline:    req.Course.Outline,
			Count:      n,
			Difficulty: difficulty,
			Language:   req.Language,
			Existing:   questionsOf(req.Existing, collected),
		})
		if err != nil {
			return nil, err
		}
		env, err := invokeAndDecode[flashcardEnvelope](ctx, s, log, constants.OperationFlashcard, p, recovery.ShapeFlashcards)
		if err != nil {
			return nil, err
		}
		return env.Flashcards, nil
	})
	if err != nil {
		return FlashcardSet{}, err
	}
	if cards == nil {
		cards = []Flashcard{}
	}
	return FlashcardSet{Flashcards: cards, Meta: meta}, nil
}

// GenerateMCQs produces req.Count multiple-choice questions, possibly over several model calls.
func (s *Service) GenerateMCQs(ctx context.Context, req MCQRequest, onProgress ProgressFunc) (MCQSet, error) {
	log := requestLogger(ctx, s.log)
	if err := validateRequest(req.Course, req.Count); err != nil {
		return MCQSet{}, err
	}
	text, err := s.prepareTranscript(log, req.Transcript)
	if err != nil {
		return MCQSet{}, err
	}
	difficulty := constants.NormalizeDifficulty(req.Difficulty)

	state := newBatchState[MCQ](constants.OperationMCQ, req.Count, difficulty)
	questions, meta, err := runBatches(ctx, log, state, onProgress, func(ctx context.Context, n int, _ []MCQ) ([]MCQ, error) {
		p, err := prompt.Build(constants.OperationMCQ, prompt.Params{
			Transcript: text,
			Subject:    req.Course.Subject,
			Outline:    req.Course.Outline,
			Count:      n,
			Difficulty: difficulty,
			Language:   req.Language,
		})
		if err != nil {
			return nil, err
		}
		env, err := invokeAndDecode[questionEnvelope](ctx, s, log, constants.OperationMCQ, p, recovery.ShapeQuestions)
		if err != nil {
			return nil, err
		}
		return env.Questions, nil
	})
	if err != nil {
		return MCQSet{}, err
	}
	if questions == nil {
		questions = []MCQ{}
	}
	return MCQSet{MCQs: questions, Meta: meta}, nil
}

// prepareTranscript enforces the word-count window and clips long transcripts to the
// configured threshold before they reach a prompt.
func (s *Service) prepareTranscript(log *slog.Logger, transcript string) (string, error) {
	if err := common.ValidateWordCount(transcript, s.limits.MinWordCount, s.limits.MaxWordCount); err != nil {
		return "", err
	}
	text, truncated := common.TruncateWords(transcript, s.limits.TranscriptWordThreshold)
	if truncated {
		log.Info("generate.transcript.truncated", "words", common.CountWords(transcript),
			"limit", s.limits.TranscriptWordThreshold)
	}
	return text, nil
}

func invokeAndDecode[T any](ctx context.Context, s *Service, log *slog.Logger, op constants.Operation, p string, shape recovery.Shape) (T, error) {
	var zero T
	start := time.Now()
	raw, err := s.invoker.Invoke(ctx, p, llm.PolicyFor(op))
	if err != nil {
		return zero, err
	}
	out, tier, err := recovery.Decode[T](s.pipeline, raw, shape)
	if err != nil {
		log.Error("generate.decode.failed", "op", op, "raw_len", len(raw), "error", err)
		return zero, err
	}
	log.Debug("generate.call.ok", "op", op, "tier", tier, "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func validateRequest(course CourseData, count int) error {
	return common.NewValidator().
		Field("courseData.subject", course.Subject, common.Required).
		Field("count", count, common.IntBetween(1, constants.MaxItemCount)).
		Err()
}

func questionsOf(existing, collected []Flashcard) []string {
	out := make([]string, 0, len(existing)+len(collected))
	for _, c := range existing {
		out = append(out, c.Question)
	}
	for _, c := range collected {
		out = append(out, c.Question)
	}
	return out
}
