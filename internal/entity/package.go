package entity

import "encoding/json"

// RawPackage is a package exactly as the model returned it. Every value is
// untrusted; the normalizer is the only way to turn one into a PackageRow.
type RawPackage map[string]any

// MatcherScores records reference-matcher similarity for the two matched fields.
type MatcherScores struct {
	HospitalScore  *float64 `json:"hospitalScore,omitempty"`
	TreatmentScore *float64 `json:"treatmentScore,omitempty"`
}

// Meta is the provenance and quality envelope of a package.
type Meta struct {
	SourceFile      string        `json:"source_file,omitempty"`
	SourcePage      *int          `json:"source_page,omitempty"`
	ConfidenceScore *float64      `json:"confidence_score,omitempty"`
	Warnings        []string      `json:"warnings"`
	Matcher         MatcherScores `json:"matcher"`
}

// PackageRow is one normalized catalog item. Optional strings are empty when
// not provided; optional numbers are nil when missing or unparseable.
type PackageRow struct {
	ID string `json:"id,omitempty"`

	Title             string   `json:"title"`
	Description       string   `json:"description,omitempty"`
	Details           string   `json:"details,omitempty"`
	HospitalName      string   `json:"hospital_name"`
	TreatmentName     string   `json:"treatment_name"`
	SubTreatments     string   `json:"sub_treatments,omitempty"`
	Price             *float64 `json:"price"`
	OriginalPrice     *float64 `json:"original_price,omitempty"`
	Currency          string   `json:"currency"`
	Duration          string   `json:"duration,omitempty"`
	TreatmentCategory string   `json:"treatment_category,omitempty"`
	Anaesthesia       string   `json:"anaesthesia,omitempty"`
	Commission        *float64 `json:"commission,omitempty"`
	Featured          bool     `json:"featured"`
	Status            string   `json:"status"`
	DoctorName        string   `json:"doctor_name,omitempty"`
	IsLEPackage       bool     `json:"is_le_package"`
	Includes          string   `json:"includes,omitempty"`
	ImageFileID       string   `json:"image_file_id,omitempty"`
	HospitalLocation  string   `json:"hospital_location,omitempty"`
	Category          string   `json:"category,omitempty"`
	HospitalCountry   string   `json:"hospital_country,omitempty"`

	TranslationTitle       string `json:"translation_title,omitempty"`
	TranslationDescription string `json:"translation_description,omitempty"`
	TranslationDetails     string `json:"translation_details,omitempty"`
	Translation            string `json:"translation,omitempty"`

	Meta Meta `json:"_meta"`
}

// Raw converts a row back into its untrusted form, e.g. for re-normalizing
// rows edited by a reviewer.
func (p PackageRow) Raw() RawPackage {
	b, err := json.Marshal(p)
	if err != nil {
		return RawPackage{}
	}
	var out RawPackage
	if err := json.Unmarshal(b, &out); err != nil {
		return RawPackage{}
	}
	return out
}

// Summary counts the buckets of a validated batch.
type Summary struct {
	Total        int `json:"total"`
	Valid        int `json:"valid"`
	WithWarnings int `json:"withWarnings"`
	Invalid      int `json:"invalid"`
}
