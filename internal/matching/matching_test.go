package matching_test

import (
	"testing"

	"github.com/joseph-ayodele/clinic-menu-ocr/constants"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/matching"
)

// ── Hospitals ──────────────────────────────────────────────────────────────

func TestMatchHospitalName_CloseVariant(t *testing.T) {
	got := matching.MatchHospitalName("Bumrungrad International")
	if !got.Matched || got.Value != "Bumrungrad Intl" {
		t.Fatalf("MatchHospitalName(Bumrungrad International) = %+v, want Bumrungrad Intl", got)
	}
	if got.Score < matching.MinHospitalScore {
		t.Errorf("score = %v, want >= %v", got.Score, matching.MinHospitalScore)
	}
}

func TestMatchHospitalName_Unrelated(t *testing.T) {
	got := matching.MatchHospitalName("Totally Unrelated Clinic XYZ")
	if got.Matched || got.Value != "" {
		t.Fatalf("MatchHospitalName(unrelated) = %+v, want no value", got)
	}
	if got.Score <= 0 || got.Score >= matching.MinHospitalScore {
		t.Errorf("best score = %v, want in (0, %v)", got.Score, matching.MinHospitalScore)
	}
}

func TestMatchHospitalName_PunctuationAndCase(t *testing.T) {
	got := matching.MatchHospitalName("  the-square CLINIC ")
	if !got.Matched || got.Value != "The Square Clinic" || got.Score != 1 {
		t.Errorf("got %+v, want exact canonical match", got)
	}
}

func TestMatchHospitalName_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		got := matching.MatchHospitalName(in)
		if got.Matched || got.Value != "" || got.Score != 0 {
			t.Errorf("MatchHospitalName(%q) = %+v, want zero match", in, got)
		}
	}
}

// ── Treatments ─────────────────────────────────────────────────────────────

func TestMatchTreatmentName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"MRI scan", "MRI Scan"},
		{"Rhinoplasy", "Rhinoplasty"},
		{"botox", "Botox Treatment"},
		{"IVF", "IVF (In Vitro Fertilization)"},
		{"lasik-surgery", "LASIK Surgery"},
	}
	for _, c := range cases {
		got := matching.MatchTreatmentName(c.in)
		if !got.Matched || got.Value != c.want {
			t.Errorf("MatchTreatmentName(%q) = %+v, want %q", c.in, got, c.want)
		}
	}
}

func TestMatchTreatmentName_BelowThreshold(t *testing.T) {
	got := matching.MatchTreatmentName("Hydration Drip with extra magnesium")
	if got.Matched {
		t.Errorf("expected no match, got %+v", got)
	}
}

func TestMatchTreatmentName_NonLatinOnly(t *testing.T) {
	got := matching.MatchTreatmentName("針灸")
	if got.Matched || got.Score != 0 {
		t.Errorf("got %+v, want zero match for text with no ASCII letters", got)
	}
}

// ── Matcher ────────────────────────────────────────────────────────────────

func TestMatcher_FirstEntryWinsTie(t *testing.T) {
	m := matching.NewMatcher([]constants.ReferenceName{{Name: "Alpha"}, {Name: "alpha!"}}, 0.5)
	if got := m.Match("ALPHA"); got.Value != "Alpha" {
		t.Errorf("Match(ALPHA) = %q, want first entry", got.Value)
	}
}

func TestSimilarity(t *testing.T) {
	if s := matching.Similarity("abc", "abc"); s != 1 {
		t.Errorf("identical = %v, want 1", s)
	}
	if s := matching.Similarity("abcd", "abce"); s != 0.75 {
		t.Errorf("one substitution over four = %v, want 0.75", s)
	}
	if s := matching.Similarity("", "abc"); s != 0 {
		t.Errorf("empty = %v, want 0", s)
	}
}
