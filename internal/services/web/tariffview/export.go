package tariffview

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExportColumns is the header of every export.
var ExportColumns = []string{"from", "to", "effectiveDate", "expiryDate", "adValoremRate", "specificRate", "products"}

var whitespace = regexp.MustCompile(`\s+`)

// ExportFilename names a download for the chosen mode and origin.
func ExportFilename(mode Mode, originName, ext string) string {
	return fmt.Sprintf("tariffs_%s_%s.%s", ParseMode(string(mode)), whitespace.ReplaceAllString(originName, "_"), ext)
}

func exportRecord(row Row) []string {
	specific := ""
	if row.SpecificRate != nil {
		specific = formatFloat(*row.SpecificRate)
	}
	return []string{
		row.From,
		row.To,
		row.EffectiveDate,
		row.ExpiryDate,
		formatFloat(row.AdValoremRate),
		specific,
		strings.Join(row.Products, ";"),
	}
}

// CSV renders rows with every value double quoted.
func CSV(rows []Row) []byte {
	var buf bytes.Buffer
	buf.WriteString(strings.Join(ExportColumns, ","))
	for _, row := range rows {
		buf.WriteByte('\n')
		for i, value := range exportRecord(row) {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(value, `"`, `""`))
			buf.WriteByte('"')
		}
	}
	return buf.Bytes()
}

// XLSX renders rows as a single-sheet workbook.
func XLSX(rows []Row) ([]byte, error) {
	const sheet = "Tariffs"
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(ExportColumns))
	for i, col := range ExportColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		record := []any{row.From, row.To, row.EffectiveDate, row.ExpiryDate, row.AdValoremRate, nil, strings.Join(row.Products, ";")}
		if row.SpecificRate != nil {
			record[5] = *row.SpecificRate
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &record); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
