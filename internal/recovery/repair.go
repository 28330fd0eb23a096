package recovery

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	reSingleQuotedKey   = regexp.MustCompile(`'([^'\n]+)'(\s*:)`)
	reSingleQuotedValue = regexp.MustCompile(`:(\s*)'([^'\n]*)'`)
	reSingleQuotedItem  = regexp.MustCompile(`([\[,]\s*)'([^'\n]*)'`)
	reBareKey           = regexp.MustCompile(`([{,]\s*)([A-Za-z0-9_]+)(\s*:)`)
	reTrailingComma     = regexp.MustCompile(`,(\s*[}\]])`)
)

// Repair applies the fixed syntactic rewrites and, for list envelopes, re-closes a
// truncated item array. It is idempotent: Repair(Repair(s)) == Repair(s).
func Repair(text string, shape Shape) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return s
	}
	if strings.HasPrefix(s, "[") && shape.ArrayKey != "" {
		s = `{"` + shape.ArrayKey + `": ` + s
	} else if !strings.HasPrefix(s, "{") {
		s = "{" + s
	}
	if !strings.HasSuffix(s, "}") {
		s += "}"
	}

	s = fixQuoting(s)

	for _, key := range shape.arrayKeys() {
		if closed, ok := closeTruncatedArray(s, key); ok {
			return closed
		}
	}
	return s
}

// fixQuoting converts single-quoted keys, values and array items to double quotes, quotes bare keys and
// strips trailing commas. Double-quoted string literals are never touched.
func fixQuoting(s string) string {
	s = outsideStrings(s, func(code string) string {
		code = reSingleQuotedKey.ReplaceAllString(code, `"$1"$2`)
		code = reSingleQuotedValue.ReplaceAllString(code, `:$1"$2"`)
		return reSingleQuotedItem.ReplaceAllString(code, `$1"$2"`)
	})
	return outsideStrings(s, func(code string) string {
		code = reBareKey.ReplaceAllString(code, `$1"$2"$3`)
		return reTrailingComma.ReplaceAllString(code, `$1`)
	})
}

// outsideStrings applies fn to every span of s that lies outside a double-quoted JSON string.
// An unterminated trailing string is copied verbatim.
func outsideStrings(s string, fn func(string) string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	start := 0
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
				b.WriteString(s[start : i+1])
				start = i + 1
			}
			continue
		}
		if c == '"' {
			b.WriteString(fn(s[start:i]))
			start = i
			inStr = true
		}
	}
	if inStr {
		b.WriteString(s[start:])
	} else {
		b.WriteString(fn(s[start:]))
	}
	return b.String()
}

func arrayOpening(key string) *regexp.Regexp {
	return regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*\[`)
}

var arrayOpenings = map[string]*regexp.Regexp{
	"flashcards": arrayOpening("flashcards"),
	"questions":  arrayOpening("questions"),
}

// closeTruncatedArray finds the array under key and, when it is never closed, rebuilds the
// document from the structurally complete objects in its body followed by "]}". Braces and
// brackets inside string literals are ignored, honoring backslash escapes. It reports false when
// the array is absent, already closed, or holds no complete object.
func closeTruncatedArray(s, key string) (string, bool) {
	re, ok := arrayOpenings[key]
	if !ok {
		re = arrayOpening(key)
	}
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s, false
	}
	body := s[loc[1]:]

	var objects []string
	depth, objStart := 0, -1
	inStr, esc := false, false
	for i := 0; i < len(body); i++ {
		c := body[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{', '[':
			if depth == 0 && c == '{' {
				objStart = i
			}
			depth++
		case '}', ']':
			if depth == 0 {
				if c == ']' {
					return s, false
				}
				continue
			}
			depth--
			if depth == 0 && c == '}' && objStart >= 0 {
				objects = append(objects, body[objStart:i+1])
				objStart = -1
			}
		}
	}
	if len(objects) == 0 {
		return s, false
	}
	return s[:loc[1]] + strings.Join(objects, ",") + "]}", true
}

// extractFragments is the last-resort tier: it matches standalone item objects in text,
// repairs each independently and keeps those that parse.
func extractFragments(text string, shape Shape) ([]byte, bool) {
	for _, ex := range shape.extractors {
		matches := ex.pattern.FindAllString(text, -1)
		if len(matches) == 0 {
			continue
		}
		items := make([]json.RawMessage, 0, len(matches))
		for _, m := range matches {
			fixed := fixQuoting(m)
			if !json.Valid([]byte(fixed)) {
				continue
			}
			items = append(items, json.RawMessage(fixed))
		}
		if len(items) == 0 {
			continue
		}
		out, err := json.Marshal(map[string][]json.RawMessage{ex.key: items})
		if err != nil {
			continue
		}
		return out, true
	}
	return nil, false
}
