package ocr

import (
	"regexp"
	"strings"
)

var (
	reLineEnds   = regexp.MustCompile(`\r\n?`)
	reHorizontal = regexp.MustCompile(`[ \t\f\v]+`)
	reEdgeSpaces = regexp.MustCompile(` *\n *`)
	reMultiBreak = regexp.MustCompile(`\n{2,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-=~]{3,}\s*$`)
)

// CleanText normalizes line endings, collapses horizontal whitespace and runs
// of blank lines, and trims. Single line breaks are kept: downstream
// segmentation relies on them.
func CleanText(s string) string {
	if s == "" {
		return s
	}
	s = reLineEnds.ReplaceAllString(s, "\n")
	s = reHorizontal.ReplaceAllString(s, " ")
	s = reEdgeSpaces.ReplaceAllString(s, "\n")
	s = reMultiBreak.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

// stripBoxNoise drops ruler lines tesseract emits for table borders.
func stripBoxNoise(s string) string {
	return reBoxNoise.ReplaceAllString(s, "")
}

// countNonSpace counts runes that are not whitespace.
func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\v':
		default:
			n++
		}
	}
	return n
}
