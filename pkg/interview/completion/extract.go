package completion

import (
	"strings"

	"github.com/vango-go/vai-interviews/pkg/interview"
)

// ExtractJSON returns the first balanced JSON object or array embedded in
// raw. Models are allowed to wrap JSON in prose or markdown code fences; the
// scanner is string- and escape-aware so braces inside string values do not
// break the balance count.
func ExtractJSON(raw string) (string, error) {
	start := -1
	var open, close byte
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			start, open, close = i, '{', '}'
		case '[':
			start, open, close = i, '[', ']'
		default:
			continue
		}
		break
	}
	if start < 0 {
		return "", interview.NewMalformedOutputError("no JSON object or array found in model output", nil)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", interview.NewMalformedOutputError("unbalanced JSON in model output", nil)
}

// StripFences removes a leading/trailing markdown code fence if the whole
// payload is fenced. Kept for callers that want the fenced body without a
// balance scan.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
