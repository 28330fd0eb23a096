// Package prompt renders the model prompts for transcript analysis and study-material batches.
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/joseph-ayodele/studydeck/constants"
	"github.com/joseph-ayodele/studydeck/internal/common"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Params are the domain inputs interpolated into a template. Fields that an operation does not
// use are ignored.
type Params struct {
	Transcript string
	Subject    string
	Outline    []string
	Count      int
	Difficulty int
	Language   constants.Language
	// Existing lists questions already generated; flashcards only.
	Existing []string
}

type templateData struct {
	Transcript             string
	Subject                string
	Outline                string
	Count                  int
	Difficulty             int
	DifficultyInstructions string
	LanguageDirective      string
	Existing               []string
}

// Build renders the prompt for op. Identical inputs always produce identical output.
func Build(op constants.Operation, p Params) (string, error) {
	name, ok := templateName(op)
	if !ok {
		return "", common.ValidationError(fmt.Sprintf("unknown prompt operation %q", op), nil)
	}

	lang := constants.ParseLanguage(string(p.Language))
	data := templateData{
		Transcript:        p.Transcript,
		Subject:           p.Subject,
		Outline:           strings.Join(p.Outline, ", "),
		Count:             p.Count,
		Difficulty:        constants.NormalizeDifficulty(p.Difficulty),
		LanguageDirective: languageDirective(op, lang),
	}
	if op != constants.OperationAnalyze {
		data.DifficultyInstructions = DifficultyInstructions(op, data.Difficulty)
	}
	if op == constants.OperationFlashcard {
		data.Existing = compact(p.Existing)
	}

	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", op, err)
	}
	return b.String(), nil
}

func templateName(op constants.Operation) (string, bool) {
	switch op {
	case constants.OperationAnalyze, constants.OperationFlashcard, constants.OperationMCQ:
		return string(op) + ".tmpl", true
	}
	return "", false
}

// compact trims entries and drops blanks and exact duplicates, keeping order.
func compact(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.Join(strings.Fields(s), " ")
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
