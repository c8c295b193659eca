// ABOUTME: Lenient JSON extraction from model replies.
// ABOUTME: Falls back to fenced or bare objects and strips comments and trailing commas.
package ai

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when no JSON value can be recovered from a reply.
var ErrNoJSON = errors.New("no JSON found in response")

var (
	fencedRe        = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON decodes the JSON in text into v. Plain JSON is tried first, then
// each fenced code block, then the outermost bare object or array.
func ExtractJSON(text string, v any) error {
	trimmed := strings.TrimSpace(text)
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	var candidates []string
	for _, m := range fencedRe.FindAllStringSubmatch(trimmed, -1) {
		candidates = append(candidates, m[1])
	}
	if bare := outermost(trimmed); bare != "" {
		candidates = append(candidates, bare)
	}

	for _, c := range candidates {
		if err := json.Unmarshal([]byte(c), v); err == nil {
			return nil
		}
		if err := json.Unmarshal([]byte(clean(c)), v); err == nil {
			return nil
		}
	}
	return ErrNoJSON
}

// outermost returns the text from the first '{' or '[' to the last matching
// closer, or "" if there is none.
func outermost(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return ""
	}
	return s[start : end+1]
}

func clean(s string) string {
	return trailingCommaRe.ReplaceAllString(stripComments(s), "$1")
}

// stripComments removes // and /* */ comments that appear outside strings.
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
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
		if c == '/' && i+1 < len(s) {
			switch s[i+1] {
			case '/':
				for i < len(s) && s[i] != '\n' {
					i++
				}
				if i < len(s) {
					b.WriteByte('\n')
				}
				continue
			case '*':
				end := strings.Index(s[i+2:], "*/")
				if end < 0 {
					return b.String()
				}
				i += end + 3
				continue
			}
		}
		if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}
	return b.String()
}
