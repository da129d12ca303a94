// Package matching fuzzy-matches free-text hospital and treatment names against
// the curated reference lists in constants.
package matching

import (
	"strings"

	"github.com/agext/levenshtein"

	"github.com/joseph-ayodele/clinic-menu-ocr/constants"
)

const (
	MinHospitalScore  = 0.72
	MinTreatmentScore = 0.70
)

// Match is the outcome of one lookup. Score is the best similarity found even
// when Matched is false.
type Match struct {
	Value   string
	Matched bool
	Score   float64
}

// Matcher scores queries against a fixed reference list.
type Matcher struct {
	entries   []entry
	threshold float64
}

type entry struct {
	canonical string
	keys      []string // normalized name followed by normalized aliases
}

// NewMatcher builds a matcher over refs. The list is copied and never mutated.
func NewMatcher(refs []constants.ReferenceName, threshold float64) *Matcher {
	m := &Matcher{threshold: threshold, entries: make([]entry, 0, len(refs))}
	for _, r := range refs {
		e := entry{canonical: r.Name}
		for _, s := range append([]string{r.Name}, r.Aliases...) {
			if k := normalize(s); k != "" {
				e.keys = append(e.keys, k)
			}
		}
		m.entries = append(m.entries, e)
	}
	return m
}

var (
	hospitalMatcher  = NewMatcher(constants.Hospitals(), MinHospitalScore)
	treatmentMatcher = NewMatcher(constants.Treatments(), MinTreatmentScore)
)

// MatchHospitalName resolves raw to a canonical hospital name.
func MatchHospitalName(raw string) Match { return hospitalMatcher.Match(raw) }

// MatchTreatmentName resolves raw to a canonical treatment name.
func MatchTreatmentName(raw string) Match { return treatmentMatcher.Match(raw) }

// Match returns the highest scoring entry. The first entry wins ties.
func (m *Matcher) Match(raw string) Match {
	if strings.TrimSpace(raw) == "" {
		return Match{}
	}
	q := normalize(raw)
	if q == "" {
		return Match{}
	}

	var best Match
	for _, e := range m.entries {
		for _, k := range e.keys {
			if s := Similarity(q, k); s > best.Score {
				best = Match{Value: e.canonical, Score: s}
			}
		}
	}
	if best.Score < m.threshold {
		return Match{Score: best.Score}
	}
	best.Matched = true
	return best
}

// Similarity is 1 - distance/longest over already normalized strings.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	d := levenshtein.Distance(a, b, nil)
	return 1 - float64(d)/float64(longest)
}

// normalize lowercases and keeps only ASCII letters and digits.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
