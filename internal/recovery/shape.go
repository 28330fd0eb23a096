package recovery

import (
	"regexp"

	"github.com/joseph-ayodele/studydeck/internal/llm"
)

// Shape describes the envelope a caller expects back from the model.
type Shape struct {
	Name string
	// ArrayKey names the item array for list envelopes; empty for single objects.
	ArrayKey string
	Required []string
	// Schema validates a recovered document; nil accepts any valid JSON.
	Schema map[string]any

	extractors []fragmentExtractor
}

// fragmentExtractor pulls standalone item objects out of unparseable text.
type fragmentExtractor struct {
	key     string
	pattern *regexp.Regexp
}

var (
	flashcardFragment = fragmentExtractor{
		key:     "flashcards",
		pattern: regexp.MustCompile(`\{[^{}]*["']?question["']?\s*:[^{}]*["']?answer["']?\s*:[^{}]*\}`),
	}
	questionFragment = fragmentExtractor{
		key:     "questions",
		pattern: regexp.MustCompile(`\{[^{}]*["']?question["']?\s*:[^{}]*(?:["']?A["']?|["']?correct["']?)\s*:[^{}]*\}`),
	}
)

var (
	// ShapeAnalysis is {subject, outline[]}.
	ShapeAnalysis = Shape{
		Name:   "analysis",
		Schema: llm.AnalysisSchema(),
	}
	// ShapeFlashcards is {"flashcards": [{question, answer}]}.
	ShapeFlashcards = Shape{
		Name:       "flashcards",
		ArrayKey:   "flashcards",
		Required:   llm.FlashcardFields,
		Schema:     llm.FlashcardsSchema(),
		extractors: []fragmentExtractor{flashcardFragment},
	}
	// ShapeQuestions is {"questions": [{question, A, B, C, D, correct}]}.
	ShapeQuestions = Shape{
		Name:       "questions",
		ArrayKey:   "questions",
		Required:   llm.QuestionFields,
		Schema:     llm.QuestionsSchema(),
		extractors: []fragmentExtractor{questionFragment},
	}
	// ShapeAny accepts any JSON document and guesses the array envelope during repair.
	ShapeAny = Shape{
		Name:       "any",
		extractors: []fragmentExtractor{flashcardFragment, questionFragment},
	}
)

// arrayKeys lists the envelope arrays the repair tier may re-close.
func (s Shape) arrayKeys() []string {
	if s.ArrayKey != "" {
		return []string{s.ArrayKey}
	}
	if s.Schema == nil {
		return []string{"flashcards", "questions"}
	}
	return nil
}
