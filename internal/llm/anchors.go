package llm

import (
	"regexp"
	"strings"
)

const anchorCodes = `USD|THB|EUR|GBP|SGD|MYR|KRW|BAHT`

const anchorNumber = `\d[\d,]*(?:\.\d+)?`

// A price anchor is a currency glyph or code next to a number, on either side.
var reAnchor = regexp.MustCompile(
	`(?:US\$|S\$|\bRM|฿|£|€|₩|\$|\b(?:` + anchorCodes + `))\s?` + anchorNumber +
		`|` + anchorNumber + `\s?(?:€|฿|\b(?:` + anchorCodes + `)\b)`,
)

// CountPriceAnchors counts price anchors in OCR text. Codes are matched
// case-insensitively. It is a heuristic used to flag responses that return
// fewer packages than the menu shows prices.
func CountPriceAnchors(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return len(reAnchor.FindAllStringIndex(strings.ToUpper(text), -1))
}
