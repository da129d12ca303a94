package llm

import (
	"regexp"
	"strings"
)

var (
	reLeadFence  = regexp.MustCompile("(?i)^```(?:json)?[ \t]*\n?")
	reTrailFence = regexp.MustCompile("\n?```$")
)

// SanitizeModelResponse strips markdown fences and surrounding prose from a
// model answer. When no JSON object or array can be located the text is
// returned as is, so the caller's parse fails on the real output.
func SanitizeModelResponse(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = reLeadFence.ReplaceAllString(s, "")
	s = strings.TrimSpace(reTrailFence.ReplaceAllString(s, ""))

	if looksLikeJSON(s) {
		return s
	}
	// An object wins over an array; prose often carries stray brackets.
	if span, ok := enclosed(s, '{', '}'); ok {
		return span
	}
	if span, ok := enclosed(s, '[', ']'); ok {
		return span
	}
	return s
}

func enclosed(s string, open, closer byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return "", false
	}
	return strings.TrimSpace(s[start : end+1]), true
}

func looksLikeJSON(s string) bool {
	if len(s) < 2 {
		return false
	}
	first, last := s[0], s[len(s)-1]
	return (first == '{' && last == '}') || (first == '[' && last == ']')
}
