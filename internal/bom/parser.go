package bom

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

// MaxFileSize is the upload ceiling for BOM files.
const MaxFileSize = 10 << 20

// Accepted mime types.
const (
	MimeCSV  = "text/csv"
	MimeXLS  = "application/vnd.ms-excel"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// HeaderSimilarityThreshold is the minimum similarity between the uploaded
// header and the template header below which a warning is attached.
const HeaderSimilarityThreshold = 0.7

// Table is the output of the tabular parser for one file.
type Table struct {
	Header        []string
	Records       []RawRecord
	Errors        []RowError
	HeaderWarning string
}

// TotalRows is the number of data rows in the file, failed ones included.
func (t *Table) TotalRows() int { return len(t.Records) + len(t.Errors) }

// Parse turns file bytes into raw records and row errors. A non-nil error
// means the whole file was rejected.
func Parse(data []byte, mimeType string) ([]RawRecord, []RowError, error) {
	t, err := ParseTable(data, mimeType)
	if err != nil {
		return nil, nil, err
	}
	return t.Records, t.Errors, nil
}

// AcceptedMimeType reports whether a declared content type is one of the
// accepted BOM formats. Parameters such as charset are ignored.
func AcceptedMimeType(mimeType string) bool {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return false
	}
	switch mt {
	case MimeCSV, MimeXLS, MimeXLSX:
		return true
	}
	return false
}

// ParseTable is Parse with header details.
func ParseTable(data []byte, mimeType string) (*Table, error) {
	if !AcceptedMimeType(mimeType) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, mimeType)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(data), MaxFileSize)
	}
	if len(bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))) == 0 {
		return nil, ErrEmptyFile
	}

	// The declared type is advisory; browsers on Windows send CSV files as
	// application/vnd.ms-excel, so the container is identified by content.
	switch detected := mimetype.Detect(data); {
	case isA(detected, "application/zip"):
		return parseWorkbook(data)
	case isA(detected, "application/x-ole-storage"):
		return nil, ErrLegacyWorkbook
	default:
		return parseDelimited(data)
	}
}

func isA(m *mimetype.MIME, target string) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(target) {
			return true
		}
	}
	return false
}

// parseDelimited reads comma or semicolon separated text. A record spans
// several physical lines only while a quoted field is open; when such a
// record fails to parse, the error is charged to its first line and reading
// resumes on the next one, so a broken quote only costs that line.
func parseDelimited(data []byte) (*Table, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}

	t := &Table{}
	var comma rune
	lines := splitLines(text)
	for i := 0; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		row := i + 1
		if t.Header == nil {
			comma = detectDelimiter(lines[i])
			fields, err := readLine(lines[i], comma)
			if err != nil {
				fields = []string{lines[i]}
			}
			t.setHeader(fields)
			continue
		}

		record, last := joinQuoted(lines, i)
		fields, err := readLine(record, comma)
		if err != nil {
			t.Errors = append(t.Errors, RowError{Row: row, Reason: csvReason(err)})
			continue
		}
		i = last
		if isBlankRow(fields) {
			continue
		}
		t.addRow(row, fields, false)
	}
	return t, nil
}

// joinQuoted returns the record starting at lines[start] and the index of
// its last line. Lines are joined while the count of quote characters is
// odd. A quote still open at the end of input yields the start line alone.
func joinQuoted(lines []string, start int) (string, int) {
	if strings.Count(lines[start], `"`)%2 == 0 {
		return lines[start], start
	}
	var b strings.Builder
	b.WriteString(lines[start])
	for j := start + 1; j < len(lines); j++ {
		b.WriteByte('\n')
		b.WriteString(lines[j])
		if strings.Count(lines[j], `"`)%2 == 1 {
			return b.String(), j
		}
	}
	return lines[start], start
}

// parseWorkbook reads the first sheet of an xlsx workbook.
func parseWorkbook(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}

	t := &Table{}
	for i, fields := range rows {
		if isBlankRow(fields) {
			continue
		}
		if t.Header == nil {
			t.setHeader(fields)
			continue
		}
		t.addRow(i+1, fields, true)
	}
	if t.Header == nil {
		return nil, ErrEmptyFile
	}
	return t, nil
}

func (t *Table) setHeader(fields []string) {
	t.Header = make([]string, len(fields))
	for i, f := range fields {
		t.Header[i] = strings.TrimSpace(f)
	}
	if sim := headerSimilarity(t.Header); sim < HeaderSimilarityThreshold {
		t.HeaderWarning = fmt.Sprintf(
			"header does not look like the BOM template (similarity %.0f%%); columns are read by position: %s",
			sim*100, strings.Join(Columns, ", "))
	}
}

// addRow validates the shape of a data row. Spreadsheet rows come back
// without their trailing empty cells, so they are padded rather than
// rejected for being short.
func (t *Table) addRow(row int, fields []string, padded bool) {
	if padded {
		for len(fields) < requiredColumns {
			fields = append(fields, "")
		}
	}
	if len(fields) < requiredColumns || len(fields) > len(Columns) {
		t.Errors = append(t.Errors, RowError{
			Row:    row,
			Reason: fmt.Sprintf("wrong field count: got %d, want %d to %d", len(fields), requiredColumns, len(Columns)),
		})
		return
	}

	qty := strings.TrimSpace(fields[3])
	if qty == "" {
		t.Errors = append(t.Errors, RowError{Row: row, Reason: "missing quantity"})
		return
	}
	if _, err := parseLocaleDecimal(qty); err != nil {
		t.Errors = append(t.Errors, RowError{Row: row, Reason: fmt.Sprintf("non-numeric quantity %q", qty)})
		return
	}

	rec := RawRecord{RowIndex: row, Fields: make(map[string]string, len(Columns))}
	for i, v := range fields {
		rec.Fields[Columns[i]] = v
	}
	t.Records = append(t.Records, rec)
}

func readLine(line string, comma rune) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = comma
	r.FieldsPerRecord = -1
	return r.Read()
}

func csvReason(err error) string {
	switch {
	case errors.Is(err, csv.ErrQuote):
		return "unterminated quoted field"
	case errors.Is(err, csv.ErrBareQuote):
		return "unexpected quote in unquoted field"
	default:
		return "malformed row"
	}
}

// detectDelimiter picks ';' when the header uses it more than ','. Excel in
// locales with a decimal comma saves CSV with semicolons.
func detectDelimiter(header string) rune {
	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}
	return ','
}

func isBlankRow(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// headerSimilarity compares the header to the template header using the
// normalized Levenshtein distance of the joined, lower-cased column names.
func headerSimilarity(header []string) float64 {
	got := strings.ToLower(strings.Join(header, ","))
	want := strings.Join(Columns, ",")
	if len(header) < len(Columns) {
		want = strings.Join(Columns[:max(len(header), requiredColumns)], ",")
	}
	longest := max(len([]rune(got)), len([]rune(want)))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(got, want))/float64(longest)
}
