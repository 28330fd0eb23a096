package recovery

import (
	"regexp"
	"strings"
)

var (
	reFenceLang = regexp.MustCompile("(?i)```json\\s*")
	reFence     = regexp.MustCompile("```\\s*")
)

// Normalize strips markdown code fences and surrounding whitespace.
func Normalize(raw string) string {
	s := reFenceLang.ReplaceAllString(raw, "")
	s = reFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
