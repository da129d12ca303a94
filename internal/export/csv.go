package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
)

// Headers is the bulk-import column order. It is a fixed external contract.
var Headers = []string{
	"title",
	"description",
	"details",
	"hospital_name",
	"treatment_name",
	"Sub Treatments",
	"price",
	"original_price",
	"currency",
	"duration",
	"treatment_category",
	"anaesthesia",
	"commission",
	"featured",
	"status",
	"doctor_name",
	"is_le_package",
	"includes",
	"image_file_id",
	"hospital_location",
	"category",
	"hospital_country",
	"translation_title",
	"translation_description",
	"translation_details",
	"translation",
}

// Row maps a package onto Headers.
func Row(p entity.PackageRow) []string {
	return []string{
		p.Title,
		p.Description,
		p.Details,
		p.HospitalName,
		p.TreatmentName,
		p.SubTreatments,
		formatNumber(p.Price),
		formatNumber(p.OriginalPrice),
		p.Currency,
		p.Duration,
		p.TreatmentCategory,
		p.Anaesthesia,
		formatNumber(p.Commission),
		formatBool(p.Featured),
		p.Status,
		p.DoctorName,
		formatBool(p.IsLEPackage),
		p.Includes,
		p.ImageFileID,
		p.HospitalLocation,
		p.Category,
		p.HospitalCountry,
		p.TranslationTitle,
		p.TranslationDescription,
		p.TranslationDetails,
		p.Translation,
	}
}

// WriteCSV writes the header line and one line per row, LF-terminated.
func WriteCSV(w io.Writer, rows []entity.PackageRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(Row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// GenerateCSV returns the CSV document for rows.
func GenerateCSV(rows []entity.PackageRow) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
