package llm

import (
	"regexp"
	"strings"
)

var (
	fencedJSONPattern    = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")
	bareJSONPattern      = regexp.MustCompile(`(?s)\{.*\}`)
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON pulls a JSON object out of a model reply. It accepts a bare
// object, an object inside a ``` or ```json fence, or an object surrounded by
// prose. Trailing commas are removed. Returns "" when no object is present.
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}

	raw := ""
	if m := fencedJSONPattern.FindStringSubmatch(content); len(m) > 1 {
		raw = m[1]
	} else if m := bareJSONPattern.FindString(content); m != "" {
		raw = m
	}
	if raw == "" {
		return ""
	}
	return trailingCommaPattern.ReplaceAllString(raw, "$1")
}
