package normalize

import (
	"strings"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
)

// RequiredFields lists the columns a row needs before it can be imported.
var RequiredFields = []string{"title", "hospital_name", "treatment_name", "price", "currency"}

// MissingFieldsWarning prefixes the warning added for rows missing a required field.
const MissingFieldsWarning = "Missing required fields: "

// BatchResult holds the three disjoint buckets of a validated batch.
type BatchResult struct {
	Valid        []entity.PackageRow `json:"validPackages"`
	WithWarnings []entity.PackageRow `json:"packagesWithWarnings"`
	Invalid      []entity.PackageRow `json:"invalidPackages"`
}

// Summary derives counts from the bucket sizes.
func (r BatchResult) Summary() entity.Summary {
	return entity.Summary{
		Total:        len(r.Valid) + len(r.WithWarnings) + len(r.Invalid),
		Valid:        len(r.Valid),
		WithWarnings: len(r.WithWarnings),
		Invalid:      len(r.Invalid),
	}
}

// ValidatePackageBatch partitions rows. A row missing a required field gets a
// "Missing required fields" warning written back into rows[i] so callers
// holding the slice see why it was flagged.
func ValidatePackageBatch(rows []entity.PackageRow) BatchResult {
	var res BatchResult
	for i := range rows {
		row := &rows[i]
		if missing := MissingRequired(*row); len(missing) > 0 {
			row.Meta.Warnings = appendUnique(row.Meta.Warnings, MissingFieldsWarning+strings.Join(missing, ", "))
			res.Invalid = append(res.Invalid, *row)
			continue
		}
		if len(row.Meta.Warnings) > 0 {
			res.WithWarnings = append(res.WithWarnings, *row)
		} else {
			res.Valid = append(res.Valid, *row)
		}
	}
	return res
}

// MissingRequired names the required fields that are blank on row, in
// RequiredFields order.
func MissingRequired(row entity.PackageRow) []string {
	var missing []string
	for _, f := range RequiredFields {
		var blank bool
		switch f {
		case "title":
			blank = strings.TrimSpace(row.Title) == ""
		case "hospital_name":
			blank = strings.TrimSpace(row.HospitalName) == ""
		case "treatment_name":
			blank = strings.TrimSpace(row.TreatmentName) == ""
		case "price":
			blank = row.Price == nil
		case "currency":
			blank = strings.TrimSpace(row.Currency) == ""
		}
		if blank {
			missing = append(missing, f)
		}
	}
	return missing
}
