package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var reThousands = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

type numberState int

const (
	numMissing numberState = iota
	numInvalid
	numOK
)

// parseNumber accepts JSON numbers and numeric strings. Booleans, objects and
// non-finite values are invalid.
func parseNumber(v any) (float64, numberState) {
	switch n := v.(type) {
	case nil:
		return 0, numMissing
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n), numOK
	case int64:
		return float64(n), numOK
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, numInvalid
		}
		return finite(f)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, numMissing
		}
		if reThousands.MatchString(s) {
			s = strings.ReplaceAll(s, ",", "")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, numInvalid
		}
		return finite(f)
	default:
		return 0, numInvalid
	}
}

func finite(f float64) (float64, numberState) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, numInvalid
	}
	return f, numOK
}

// asString renders scalar values as trimmed text. Lists of scalars are joined
// with commas, matching the comma-separated export columns.
func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	case int:
		return strconv.Itoa(s)
	case []any:
		parts := make([]string, 0, len(s))
		for _, item := range s {
			if p := asString(item); p != "" {
				parts = append(parts, p)
			}
		}
		return strings.Join(parts, ",")
	case []string:
		parts := make([]string, 0, len(s))
		for _, item := range s {
			if p := strings.TrimSpace(item); p != "" {
				parts = append(parts, p)
			}
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}

// asBool follows the loose spellings seen in model output and falls back to def.
func asBool(v any, def bool) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	case float64:
		return b == 1
	case int:
		return b == 1
	case json.Number:
		return b.String() == "1"
	}
	return def
}

func floatPtr(f float64) *float64 { return &f }

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
