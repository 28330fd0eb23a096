// Package generate produces analyses, flashcards and multiple-choice questions from a transcript,
// splitting large requests into sequential model batches.
package generate

import "github.com/joseph-ayodele/studydeck/constants"

// CourseData is the course context returned by Analyze and passed back for generation.
type CourseData struct {
	Subject string   `json:"subject"`
	Outline []string `json:"outline"`
}

// Analysis is the result of analyzing a transcript.
type Analysis = CourseData

type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// MCQ is one multiple-choice question. UserSelection and IsCorrect are set by GradeMCQ.
type MCQ struct {
	Question      string `json:"question"`
	A             string `json:"A"`
	B             string `json:"B"`
	C             string `json:"C"`
	D             string `json:"D"`
	Correct       string `json:"correct"`
	UserSelection string `json:"userSelection,omitempty"`
	IsCorrect     *bool  `json:"isCorrect,omitempty"`
}

// FlashcardRequest asks for Count flashcards. Existing cards are sent to the model so it
// avoids repeating their questions.
type FlashcardRequest struct {
	Course     CourseData
	Transcript string
	Count      int
	Difficulty int
	Language   constants.Language
	Existing   []Flashcard
}

// MCQRequest asks for Count multiple-choice questions.
type MCQRequest struct {
	Course     CourseData
	Transcript string
	Count      int
	Difficulty int
	Language   constants.Language
}

// GenerationMeta describes how a batched request went. Truncated is true when fewer items
// than requested were delivered.
type GenerationMeta struct {
	Requested        int  `json:"requested"`
	Delivered        int  `json:"delivered"`
	Batches          int  `json:"batches"`
	BatchesSucceeded int  `json:"batchesSucceeded"`
	Truncated        bool `json:"truncated"`
}

type FlashcardSet struct {
	Flashcards []Flashcard    `json:"flashcards"`
	Meta       GenerationMeta `json:"meta"`
}

type MCQSet struct {
	MCQs []MCQ          `json:"mcqs"`
	Meta GenerationMeta `json:"meta"`
}

// ProgressFunc is called with the 1-based batch index and the total batch count before each
// model call of a multi-batch request.
type ProgressFunc func(batch, total int)

type flashcardEnvelope struct {
	Flashcards []Flashcard `json:"flashcards"`
}

type questionEnvelope struct {
	Questions []MCQ `json:"questions"`
}
