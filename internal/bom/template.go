package bom

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// TemplateFormat selects the file type of a generated template.
type TemplateFormat string

const (
	TemplateCSV  TemplateFormat = "csv"
	TemplateXLSX TemplateFormat = "xlsx"
)

// ParseTemplateFormat accepts "csv" or "xlsx"; empty means csv.
func ParseTemplateFormat(s string) (TemplateFormat, error) {
	switch f := TemplateFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", TemplateCSV:
		return TemplateCSV, nil
	case TemplateXLSX:
		return TemplateXLSX, nil
	default:
		return "", fmt.Errorf("%w: template format %q", ErrUnsupportedType, s)
	}
}

// MimeType is the content type of the format.
func (f TemplateFormat) MimeType() string {
	if f == TemplateXLSX {
		return MimeXLSX
	}
	return MimeCSV
}

// FileName is the suggested download name.
func (f TemplateFormat) FileName() string { return "bom-template." + string(f) }

const templateSheet = "BOM"

var templateInstructions = [][]string{
	{"Column", "Required", "Description", "Example"},
	{ColFamily, "yes", "profiles, plates, pipes, fasteners, stainless or nonferrous", "profiles"},
	{ColGrade, "no", "material grade; regional designations are recognised", "S235JR"},
	{ColDimensions, "no", "numbers separated by x, in mm unless suffixed (cm, m)", "96x100x5x8"},
	{ColQuantity, "yes", "positive number; comma or point as decimal separator", "6"},
	{ColUnit, "no", "kg, t, m, mm or pcs; empty means pieces", "m"},
	{ColLengthM, "no", "cut length in metres", "6"},
	{ColFinish, "no", "surface finish, passed through unchanged", "galvanized"},
}

// Template returns an empty BOM file containing only the header row.
// Parsing it yields no rows and no errors.
func Template(format TemplateFormat) ([]byte, error) {
	switch format {
	case TemplateCSV:
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write(Columns); err != nil {
			return nil, err
		}
		w.Flush()
		return buf.Bytes(), w.Error()
	case TemplateXLSX:
		return xlsxTemplate()
	default:
		return nil, fmt.Errorf("%w: template format %q", ErrUnsupportedType, format)
	}
}

func xlsxTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), templateSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, h := range Columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		if err := f.SetCellValue(templateSheet, cell, h); err != nil {
			return nil, err
		}
		f.SetCellStyle(templateSheet, cell, cell, headerStyle)
		f.SetColWidth(templateSheet, col, col, 18)
	}

	const help = "Instructions"
	if _, err := f.NewSheet(help); err != nil {
		return nil, fmt.Errorf("instructions sheet: %w", err)
	}
	for r, row := range templateInstructions {
		cell, _ := excelize.CoordinatesToCellName(1, r+1)
		if err := f.SetSheetRow(help, cell, &row); err != nil {
			return nil, err
		}
	}
	f.SetCellStyle(help, "A1", "D1", headerStyle)
	f.SetColWidth(help, "A", "A", 14)
	f.SetColWidth(help, "C", "C", 60)
	f.SetColWidth(help, "D", "D", 16)
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
