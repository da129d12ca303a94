// Package normalize turns untrusted model output into typed package rows and
// partitions them for review. Nothing here returns an error: bad input
// degrades to a default plus a warning on the row.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/clinic-menu-ocr/constants"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/matching"
)

// Warning texts shown to reviewers.
const (
	WarnPriceMissing    = "price missing; set to null"
	WarnCurrencyMissing = "currency missing; defaulting to USD"
	WarnStatusMissing   = "status missing; defaulting to active"
)

func warnNotANumber(field string) string { return field + " is not a number; set to null" }

// NormalizePackageRow coerces raw into a PackageRow. Existing warnings on the
// raw record are kept and never duplicated, so normalizing an already
// normalized row changes nothing.
func NormalizePackageRow(raw entity.RawPackage) entity.PackageRow {
	if raw == nil {
		raw = entity.RawPackage{}
	}
	n := &normalizer{raw: raw}
	n.readMeta()

	row := entity.PackageRow{
		ID:                asString(raw["id"]),
		Title:             n.str("title"),
		Description:       n.str("description"),
		Details:           n.str("details"),
		HospitalName:      n.str("hospital_name"),
		TreatmentName:     n.str("treatment_name"),
		SubTreatments:     n.str("sub_treatments"),
		Duration:          n.str("duration"),
		TreatmentCategory: n.str("treatment_category"),
		Anaesthesia:       n.str("anaesthesia"),
		DoctorName:        n.str("doctor_name"),
		Includes:          n.str("includes"),
		ImageFileID:       n.str("image_file_id"),
		HospitalLocation:  n.str("hospital_location"),
		Category:          n.str("category"),
		HospitalCountry:   n.str("hospital_country"),

		TranslationTitle:       n.str("translation_title"),
		TranslationDescription: n.str("translation_description"),
		TranslationDetails:     n.str("translation_details"),
		Translation:            n.str("translation"),

		Featured:    asBool(raw["featured"], false),
		IsLEPackage: asBool(raw["is_le_package"], false),
	}
	if row.SubTreatments == "" {
		// export header spelling
		row.SubTreatments = n.str("Sub Treatments")
	}

	row.Price = n.requiredNumber("price")
	row.OriginalPrice = n.optionalNumber("original_price")
	row.Commission = n.commission()
	row.Currency = string(n.currency())
	row.Status = string(n.status())

	n.match(&row)

	row.Meta.SourceFile = n.sourceFile
	row.Meta.SourcePage = n.sourcePage
	row.Meta.ConfidenceScore = n.confidence
	row.Meta.Matcher = n.matcher
	row.Meta.Warnings = n.warnings
	return row
}

type normalizer struct {
	raw      entity.RawPackage
	warnings []string

	sourceFile string
	sourcePage *int
	confidence *float64
	matcher    entity.MatcherScores

	// scores carried on the incoming record; only trusted by keepScore
	prevScores entity.MatcherScores
}

func (n *normalizer) warn(msg string) {
	n.warnings = appendUnique(n.warnings, msg)
}

func (n *normalizer) hasWarning(msg string) bool {
	for _, w := range n.warnings {
		if w == msg {
			return true
		}
	}
	return false
}

func (n *normalizer) str(key string) string {
	return asString(n.raw[key])
}

func (n *normalizer) readMeta() {
	n.warnings = []string{}
	meta, _ := n.raw["_meta"].(map[string]any)
	if meta == nil {
		return
	}
	switch ws := meta["warnings"].(type) {
	case []any:
		for _, w := range ws {
			if s, ok := w.(string); ok && strings.TrimSpace(s) != "" {
				n.warn(strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range ws {
			if strings.TrimSpace(s) != "" {
				n.warn(strings.TrimSpace(s))
			}
		}
	}

	n.sourceFile = asString(meta["source_file"])
	if p, st := parseNumber(meta["source_page"]); st == numOK && p >= 1 && p == float64(int(p)) {
		page := int(p)
		n.sourcePage = &page
	}

	if c, st := parseNumber(meta["confidence_score"]); st == numOK {
		switch {
		case c < 0:
			n.warn(fmt.Sprintf("confidence_score %s out of range; clamped to 0", fmtNum(c)))
			c = 0
		case c > 1:
			n.warn(fmt.Sprintf("confidence_score %s out of range; clamped to 1", fmtNum(c)))
			c = 1
		}
		n.confidence = floatPtr(c)
	}

	if m, ok := meta["matcher"].(map[string]any); ok {
		if s, st := parseNumber(m["hospitalScore"]); st == numOK {
			n.prevScores.HospitalScore = floatPtr(s)
		}
		if s, st := parseNumber(m["treatmentScore"]); st == numOK {
			n.prevScores.TreatmentScore = floatPtr(s)
		}
	}
}

func (n *normalizer) requiredNumber(field string) *float64 {
	v, st := parseNumber(n.raw[field])
	switch st {
	case numOK:
		return floatPtr(v)
	case numInvalid:
		n.warn(warnNotANumber(field))
	default:
		// re-normalizing a row that failed to parse keeps its original note
		if !n.hasWarning(warnNotANumber(field)) {
			n.warn(WarnPriceMissing)
		}
	}
	return nil
}

func (n *normalizer) optionalNumber(field string) *float64 {
	v, st := parseNumber(n.raw[field])
	switch st {
	case numOK:
		return floatPtr(v)
	case numInvalid:
		n.warn(warnNotANumber(field))
	}
	return nil
}

func (n *normalizer) commission() *float64 {
	c := n.optionalNumber("commission")
	if c != nil && (*c < 0 || *c > 100) {
		n.warn(fmt.Sprintf("commission %s out of range 0-100; set to null", fmtNum(*c)))
		return nil
	}
	return c
}

func (n *normalizer) currency() constants.Currency {
	in := asString(n.raw["currency"])
	if in == "" {
		n.warn(WarnCurrencyMissing)
		return constants.DefaultCurrency
	}
	code, ok := constants.CanonicalizeCurrency(in)
	if !ok {
		n.warn(fmt.Sprintf("currency %s not supported; defaulting to USD", in))
		return constants.DefaultCurrency
	}
	return code
}

func (n *normalizer) status() constants.PackageStatus {
	switch v := n.raw["status"].(type) {
	case string:
		switch constants.PackageStatus(v) {
		case constants.StatusActive, constants.StatusInactive:
			return constants.PackageStatus(v)
		}
		if strings.TrimSpace(v) != "" {
			n.warn(fmt.Sprintf("status %q not supported; defaulting to active", v))
			return constants.StatusActive
		}
	case nil:
	default:
		n.warn(fmt.Sprintf("status %v not supported; defaulting to active", v))
		return constants.StatusActive
	}
	n.warn(WarnStatusMissing)
	return constants.StatusActive
}

// match replaces hospital and treatment names with canonical spellings when
// the matcher accepts them, and records the best score either way. A blank
// name leaves its score nil.
func (n *normalizer) match(row *entity.PackageRow) {
	if row.HospitalName != "" {
		m := matching.MatchHospitalName(row.HospitalName)
		n.matcher.HospitalScore = keepScore(n.prevScores.HospitalScore, row.HospitalName, m, matching.MinHospitalScore)
		if m.Matched {
			row.HospitalName = m.Value
		} else {
			n.warn("Hospital not recognized: " + row.HospitalName)
		}
	}
	if row.TreatmentName != "" {
		m := matching.MatchTreatmentName(row.TreatmentName)
		n.matcher.TreatmentScore = keepScore(n.prevScores.TreatmentScore, row.TreatmentName, m, matching.MinTreatmentScore)
		if m.Matched {
			row.TreatmentName = m.Value
		} else {
			n.warn("Treatment not recognized: " + row.TreatmentName)
		}
	}
}

// keepScore preserves the score from an earlier pass when the name is already
// the canonical value that pass produced.
func keepScore(prev *float64, name string, m matching.Match, threshold float64) *float64 {
	if prev != nil && m.Matched && name == m.Value && *prev >= threshold && *prev <= 1 {
		return prev
	}
	return floatPtr(m.Score)
}

func fmtNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
