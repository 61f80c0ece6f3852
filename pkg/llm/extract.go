package llm

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractJSON pulls a well-formed JSON object out of raw LLM output:
// the whole text if it is valid, else the span from the first "{" to
// the last "}". It tolerates markdown code fences, leading/trailing prose, and
// literal (unescaped) newlines inside string fields. A model that
// free-writes a multi-line "answer" value instead of escaping its
// newlines per the JSON grammar is common enough in practice to handle
// here rather than fail the whole response. It returns ("", false) if
// no object is found.
func ExtractJSON(raw string) (string, bool) {
	candidate := escapeRawNewlinesInStrings(stripFences(raw))
	if gjson.Valid(candidate) {
		return candidate, true
	}

	// Fall back to locating the outermost { ... } span and validating
	// that in isolation, tolerating prose before/after the object.
	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	span := candidate[start : end+1]
	if gjson.Valid(span) {
		return span, true
	}
	return "", false
}

// escapeRawNewlinesInStrings rewrites literal '\n'/'\r' bytes that fall
// inside a JSON string literal into their escaped "\n"/"\r" forms,
// leaving whitespace outside of strings (formatting between object
// members) untouched. It tracks string/escape state with a single
// linear scan rather than a full JSON parse, since at this point the
// input is not yet known to be valid JSON.
func escapeRawNewlinesInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
			b.WriteByte(c)
		case '"':
			inString = !inString
			b.WriteByte(c)
		case '\n':
			if inString {
				b.WriteString(`\n`)
			} else {
				b.WriteByte(c)
			}
		case '\r':
			if inString {
				b.WriteString(`\r`)
			} else {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	// Drop the opening fence line (possibly "```json") and a trailing
	// fence line if present.
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Field is a typed convenience wrapper over gjson.Get for pulling a
// single field out of an already-extracted JSON object.
func Field(json, path string) gjson.Result {
	return gjson.Get(json, path)
}
