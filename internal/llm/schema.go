package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// AnalysisSchema describes {subject, outline[]}.
func AnalysisSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subject": map[string]any{"type": "string", "minLength": 1},
			"outline": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []string{"subject", "outline"},
	}
}

// FlashcardFields are required on every flashcard item.
var FlashcardFields = []string{"question", "answer"}

// QuestionFields are required on every multiple-choice item.
var QuestionFields = []string{"question", "A", "B", "C", "D", "correct"}

// FlashcardsSchema describes {"flashcards": [{question, answer}]}.
func FlashcardsSchema() map[string]any {
	return envelopeSchema("flashcards", FlashcardFields)
}

// QuestionsSchema describes {"questions": [{question, A, B, C, D, correct}]}.
func QuestionsSchema() map[string]any {
	s := envelopeSchema("questions", QuestionFields)
	item := s["properties"].(map[string]any)["questions"].(map[string]any)["items"].(map[string]any)
	item["properties"].(map[string]any)["correct"] = map[string]any{
		"type": "string",
		"enum": []string{"A", "B", "C", "D"},
	}
	return s
}

func envelopeSchema(key string, fields []string) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		props[f] = map[string]any{"type": "string", "minLength": 1}
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			key: map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":       "object",
					"properties": props,
					"required":   fields,
				},
			},
		},
		"required": []string{key},
	}
}

var (
	compiledMu sync.Mutex
	compiled   = map[string]*jsonschema.Schema{}
)

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
// Compiled schemas are cached by their JSON text.
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	schema, err := compile(schemaMap)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

func compile(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	key := string(b)

	compiledMu.Lock()
	defer compiledMu.Unlock()
	if s, ok := compiled[key]; ok {
		return s, nil
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	compiled[key] = s
	return s, nil
}
