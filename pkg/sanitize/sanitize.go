// Package sanitize strips prompt-injection patterns from raw user
// query text before it is interpolated into an LLM prompt template.
package sanitize

import (
	"regexp"
	"strings"
)

// rolePattern matches role-indicator prefixes an attacker could use to
// impersonate the system/assistant turn inside a user-supplied query.
var rolePattern = regexp.MustCompile(`(?i)\b(system|assistant|user)\s*:`)

// overridePattern matches common instruction-override phrasing.
var overridePattern = regexp.MustCompile(`(?i)\b(ignore|disregard)\s+(all\s+)?previous\s+instructions?\b`)

// delimiterPattern matches repeated punctuation runs used to break out of
// a prompt's structure (fence/divider attacks), including markdown code
// fences.
var delimiterPattern = regexp.MustCompile("(-{3,}|={3,}|\\*{3,}|`{3,})")

// Query removes prompt-injection patterns from a user query before it
// is interpolated into a prompt template. It is not a security
// boundary against a determined attacker with API access, only a
// filter for the common patterns.
func Query(q string) string {
	q = rolePattern.ReplaceAllString(q, "")
	q = overridePattern.ReplaceAllString(q, "")
	q = delimiterPattern.ReplaceAllString(q, "")
	return strings.TrimSpace(q)
}
