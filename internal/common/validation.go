package common

import (
	"fmt"
	"strings"
)

// FieldError is one failed rule on one request field.
type FieldError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Validator collects field errors and reports them together.
type Validator struct {
	errors []FieldError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]FieldError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Err returns nil or a ValidationError listing every failed rule.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	messages := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return ValidationError(strings.Join(messages, "; "), nil)
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *FieldError

// Required rejects nil values and blank strings.
func Required(fieldName string, value interface{}) *FieldError {
	if value == nil {
		return &FieldError{Field: fieldName, Value: value, Message: "is required"}
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return &FieldError{Field: fieldName, Value: value, Message: "is required"}
	}
	return nil
}

// IntBetween builds a rule requiring an int in [min, max].
func IntBetween(min, max int) ValidationRule {
	return func(fieldName string, value interface{}) *FieldError {
		n, ok := value.(int)
		if !ok {
			return &FieldError{Field: fieldName, Value: value, Message: "must be an integer"}
		}
		if n < min || n > max {
			return &FieldError{Field: fieldName, Value: value, Message: fmt.Sprintf("must be between %d and %d", min, max)}
		}
		return nil
	}
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ValidateWordCount rejects transcripts outside [min, max] words.
func ValidateWordCount(text string, min, max int) error {
	n := CountWords(text)
	if n < min {
		return ValidationError(fmt.Sprintf("transcript has %d words; at least %d are required", n, min), nil)
	}
	if max > 0 && n > max {
		return ValidationError(fmt.Sprintf("transcript has %d words; at most %d are allowed", n, max), nil)
	}
	return nil
}

// TruncateWords keeps the first limit words of text, joined by single spaces.
// Text at or under the limit is returned unchanged.
func TruncateWords(text string, limit int) (string, bool) {
	if limit <= 0 {
		return text, false
	}
	words := strings.Fields(text)
	if len(words) <= limit {
		return text, false
	}
	return strings.Join(words[:limit], " "), true
}
