package export

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
)

const (
	PackagesSheet = "Packages"
	WarningsSheet = "Warnings"
)

var warningHeaders = []string{"Row", "Title", "Source File", "Source Page", "Warning"}

// BuildXLSX returns a workbook with the packages in CSV column order and a
// second sheet listing every row warning.
func BuildXLSX(rows []entity.PackageRow) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// The default sheet is renamed rather than left empty.
	if err := f.SetSheetName("Sheet1", PackagesSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(WarningsSheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(PackagesSheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(PackagesSheet, cell, h)
	}
	for i, h := range warningHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(WarningsSheet, cell, h)
	}

	wrow := 2
	for i, r := range rows {
		row := i + 2
		for col, v := range Row(r) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(PackagesSheet, cell, cellValue(col, v))
		}

		page := ""
		if r.Meta.SourcePage != nil {
			page = strconv.Itoa(*r.Meta.SourcePage)
		}
		for _, w := range r.Meta.Warnings {
			vals := []any{i + 1, common.Truncate(r.Title, 140), r.Meta.SourceFile, page, w}
			for col, v := range vals {
				cell, _ := excelize.CoordinatesToCellName(col+1, wrow)
				_ = f.SetCellValue(WarningsSheet, cell, v)
			}
			wrow++
		}
	}

	_ = f.SetColWidth(PackagesSheet, "A", "A", 36) // title
	_ = f.SetColWidth(PackagesSheet, "B", "C", 48) // description, details
	_ = f.SetColWidth(PackagesSheet, "D", "E", 28) // hospital, treatment
	_ = f.SetColWidth(WarningsSheet, "B", "B", 36)
	_ = f.SetColWidth(WarningsSheet, "C", "C", 28)
	_ = f.SetColWidth(WarningsSheet, "E", "E", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// Numeric columns are written as numbers so spreadsheets can sum them.
var numericCols = map[int]bool{6: true, 7: true, 12: true}

func cellValue(col int, v string) any {
	if numericCols[col] && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return v
}
