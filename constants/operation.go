package constants

import "strings"

// Operation selects the prompt template and the model call policy.
type Operation string

const (
	OperationAnalyze   Operation = "analyze"
	OperationFlashcard Operation = "flashcard"
	OperationMCQ       Operation = "mcq"
)

// Language is the output language requested by the caller.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageFrench  Language = "fr"
)

// ParseLanguage maps free input onto a supported language; anything that is not French is English.
func ParseLanguage(s string) Language {
	if strings.EqualFold(strings.TrimSpace(s), string(LanguageFrench)) {
		return LanguageFrench
	}
	return LanguageEnglish
}

// DisplayName is the language name embedded in prompts.
func (l Language) DisplayName() string {
	if l == LanguageFrench {
		return "French"
	}
	return "English"
}

// Difficulty bounds.
const (
	MinDifficulty     = 1
	MaxDifficulty     = 5
	DefaultDifficulty = 3
)

// NormalizeDifficulty maps an unset difficulty (0) to the medium tier and clamps any other
// value into [1,5].
func NormalizeDifficulty(d int) int {
	switch {
	case d == 0:
		return DefaultDifficulty
	case d < MinDifficulty:
		return MinDifficulty
	case d > MaxDifficulty:
		return MaxDifficulty
	default:
		return d
	}
}

// MaxItemCount caps how many flashcards or questions one request may ask for.
const MaxItemCount = 100
