package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

// ErrEmptyWorkbook is wrapped by FileFormatError when there is nothing to read.
var ErrEmptyWorkbook = errors.New("empty workbook")

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeZip  = "application/zip"
	mimeText = "text/plain"
)

var headerSpace = regexp.MustCompile(`\s+`)

// Sheet is the first worksheet of an uploaded workbook.
type Sheet struct {
	Name    string
	Headers []string // normalized header cells, positionally aligned with cells
	Rows    []SheetRow
}

// SheetRow is one non-empty data row.
type SheetRow struct {
	Number int // header-relative; the header is row 1
	Cells  []string
}

// Value returns the cell at position i, or "" past the end of a short row.
func (r SheetRow) Value(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// ParseWorkbook decodes data into the first worksheet's header and data rows.
// XLSX workbooks are read with excelize; plain-text exports are read as CSV.
func ParseWorkbook(data []byte) (*Sheet, error) {
	if len(data) == 0 {
		return nil, &FileFormatError{Reason: "empty file", Err: ErrEmptyWorkbook}
	}

	var (
		name    string
		records [][]string
		err     error
	)
	switch kind := sniff(data); kind {
	case mimeXLSX:
		name, records, err = readXLSX(data)
	case mimeText:
		name = "csv"
		records, err = parseCSV(sanitizeUTF8(stripBOM(data)))
		if err != nil {
			err = &FileFormatError{Reason: "invalid csv", Err: err}
		}
	default:
		err = &FileFormatError{Reason: "unsupported content type " + kind}
	}
	if err != nil {
		return nil, err
	}

	return buildSheet(name, records)
}

// sniff classifies the buffer as XLSX, text, or something else.
func sniff(data []byte) string {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		switch {
		case m.Is(mimeXLSX), m.Is(mimeZip):
			return mimeXLSX
		case m.Is(mimeText):
			return mimeText
		}
	}
	return mt.String()
}

func readXLSX(data []byte) (string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", nil, &FileFormatError{Reason: "unreadable workbook", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil, &FileFormatError{Reason: "workbook has no sheets", Err: ErrEmptyWorkbook}
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return "", nil, &FileFormatError{Reason: "unreadable worksheet " + sheets[0], Err: err}
	}
	return sheets[0], rows, nil
}

// buildSheet locates the header (first non-empty row) and collects the
// non-empty rows after it.
func buildSheet(name string, records [][]string) (*Sheet, error) {
	headerAt := -1
	for i, rec := range records {
		if !isEmptyRow(rec) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, &FileFormatError{Reason: "sheet " + name + " has no rows", Err: ErrEmptyWorkbook}
	}

	sheet := &Sheet{Name: name, Headers: make([]string, len(records[headerAt]))}
	for i, h := range records[headerAt] {
		sheet.Headers[i] = NormalizeHeader(h)
	}

	for i := headerAt + 1; i < len(records); i++ {
		if isEmptyRow(records[i]) {
			continue
		}
		sheet.Rows = append(sheet.Rows, SheetRow{
			Number: i - headerAt + 1,
			Cells:  records[i],
		})
	}
	if len(sheet.Rows) == 0 {
		return nil, &FileFormatError{Reason: fmt.Sprintf("sheet %s has no data rows", name), Err: ErrEmptyWorkbook}
	}
	return sheet, nil
}

// NormalizeHeader trims, lower-cases and replaces internal whitespace with
// underscores: " Full  Name " -> "full_name".
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
	return headerSpace.ReplaceAllString(h, "_")
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with the replacement character.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
