package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoValidItems means sanitizing removed every item of the envelope array.
var ErrNoValidItems = errors.New("sanitize: no valid items")

// SanitizeItems drops entries of the array under key that are not objects or lack a non-empty
// string for any required field, trimming the strings it keeps. The "correct" field of an
// MCQ item is normalized to an upper-case letter. It returns the rewritten document and how many
// items were dropped, or ErrNoValidItems when a non-empty array loses every item.
func SanitizeItems(doc []byte, key string, required []string) ([]byte, int, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, 0, fmt.Errorf("sanitize: decode: %w", err)
	}
	items, ok := m[key].([]any)
	if !ok {
		return nil, 0, fmt.Errorf("sanitize: %q is not an array", key)
	}

	kept := make([]any, 0, len(items))
	dropped := 0
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok || !normalizeItem(obj, required) {
			dropped++
			continue
		}
		kept = append(kept, obj)
	}
	if len(kept) == 0 && len(items) > 0 {
		return nil, dropped, ErrNoValidItems
	}
	m[key] = kept

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, dropped, nil
}

func normalizeItem(obj map[string]any, required []string) bool {
	for _, f := range required {
		v, ok := obj[f]
		if !ok {
			return false
		}
		var s string
		switch t := v.(type) {
		case string:
			s = strings.TrimSpace(t)
		case float64, bool:
			s = fmt.Sprint(t)
		default:
			return false
		}
		if s == "" {
			return false
		}
		if f == "correct" {
			s = strings.ToUpper(strings.Trim(s, " .)("))
			if len(s) != 1 || !strings.Contains("ABCD", s) {
				return false
			}
		}
		obj[f] = s
	}
	return true
}
