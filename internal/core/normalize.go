package core

// normalize.go converts raw spreadsheet cells into typed, nullable values.
//
// These functions handle the messy reality of user-provided spreadsheet data:
//   - Multiple date formats (US, EU, ISO) and Excel date serials
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Excel formula prefixes (="value")
//   - Free-form enum spelling ("Deck Cadet", "deck-cadet")
//
// A nil return means null: the cell was empty or could not be parsed.

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006", "02-Jan-2006", "2-Jan-2006",
		"2006-01-02T15:04:05Z07:00", "2006-01-02 15:04:05",
		"20060102",
	}
)

// Excel serials outside this range are not treated as dates.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465 // 9999-12-31
)

var (
	boolTrue  = map[string]bool{"true": true, "yes": true, "y": true, "1": true}
	boolFalse = map[string]bool{"false": true, "no": true, "n": true, "0": true}
)

var validate = validator.New()

// CleanCell trims whitespace and unwraps Excel text-formula artifacts.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = strings.TrimSpace(s[2 : len(s)-1])
	}
	return s
}

// NormalizeText returns nil for empty input, else the trimmed text.
func NormalizeText(s string) *string {
	s = CleanCell(s)
	if s == "" {
		return nil
	}
	return &s
}

// NormalizeBool maps {true,yes,y,1} to true and {false,no,n,0} to false,
// case-insensitively. Anything else is nil.
func NormalizeBool(s string) *bool {
	s = strings.ToLower(CleanCell(s))
	switch {
	case boolTrue[s]:
		v := true
		return &v
	case boolFalse[s]:
		v := false
		return &v
	default:
		return nil
	}
}

// NormalizeInt parses an integer. Whole-number decimals such as "3.0", which
// spreadsheets produce for numeric cells, are accepted.
func NormalizeInt(s string) *int {
	s = strings.ReplaceAll(CleanCell(s), ",", "")
	if s == "" {
		return nil
	}
	if i, err := strconv.Atoi(s); err == nil {
		return &i
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil
	}
	i := int(f)
	return &i
}

// excelSerial matches the plain decimal numbers Excel writes for dates.
// Exponents, signs and words such as NaN are not serials.
var excelSerial = regexp.MustCompile(`^\d+(\.\d+)?$`)

// NormalizeDate parses a calendar date. It supports multiple layouts,
// 2-digit years with a pivot, and Excel date serial numbers.
func NormalizeDate(s string) *time.Time {
	s = CleanCell(s)
	if s == "" {
		return nil
	}

	if excelSerial.MatchString(s) {
		serial, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(serial) || math.IsInf(serial, 0) {
			return nil
		}
		if serial < minExcelSerial || serial > maxExcelSerial || len(s) == 8 {
			return parseDateLayouts(s)
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil
		}
		d := truncateDate(t)
		return &d
	}

	return parseDateLayouts(s)
}

func parseDateLayouts(s string) *time.Time {
	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := truncateDate(t)
			return &d
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			d := truncateDate(t)
			return &d
		}
	}
	return nil
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NormalizeEnum upper-cases and folds spaces and hyphens to underscores:
// "Deck Cadet" -> "DECK_CADET".
func NormalizeEnum(s string) string {
	s = strings.ToUpper(CleanCell(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}

// NormalizeEmail lower-cases s and reports whether it is a valid address.
func NormalizeEmail(s string) (string, bool) {
	s = strings.ToLower(CleanCell(s))
	if s == "" {
		return "", false
	}
	return s, validate.Var(s, "email") == nil
}

// normalizeRow applies each column's typed conversion to the row's raw cells
// and records structural failures. Columns absent from the header are null.
func normalizeRow(def ImportDefinition, row *ImportRow) {
	for _, col := range def.Columns {
		raw, present := row.Raw[col.Name]
		if col.Normalizer != nil && present {
			raw = col.Normalizer(raw)
		}

		empty := CleanCell(raw) == ""
		if empty {
			row.Normalized[col.Name] = nil
			if col.Required {
				row.Fail("Missing required field: " + col.Name)
			}
			continue
		}

		value, problem := convertCell(col, raw)
		row.Normalized[col.Name] = value
		if problem != "" {
			row.Fail(problem)
		}
	}
}

// convertCell converts a non-empty cell. It returns nil and a message when
// the value is malformed.
func convertCell(col ColumnSpec, raw string) (any, string) {
	switch col.Type {
	case FieldText:
		if v := NormalizeText(raw); v != nil {
			return *v, ""
		}
		return nil, ""
	case FieldEnum:
		v := NormalizeEnum(raw)
		for _, allowed := range col.EnumValues {
			if v == allowed {
				return v, ""
			}
		}
		return nil, fmt.Sprintf("Invalid %s: %q (allowed: %s)", col.Name, CleanCell(raw), strings.Join(col.EnumValues, ", "))
	case FieldEmail:
		v, ok := NormalizeEmail(raw)
		if !ok {
			return nil, fmt.Sprintf("Invalid email format for %s: %q", col.Name, CleanCell(raw))
		}
		return v, ""
	case FieldBool:
		if v := NormalizeBool(raw); v != nil {
			return *v, ""
		}
		return nil, fmt.Sprintf("Invalid boolean for %s: %q (use yes/no)", col.Name, CleanCell(raw))
	case FieldInt:
		if v := NormalizeInt(raw); v != nil {
			return *v, ""
		}
		return nil, fmt.Sprintf("Invalid integer for %s: %q", col.Name, CleanCell(raw))
	case FieldDate:
		if v := NormalizeDate(raw); v != nil {
			return *v, ""
		}
		return nil, fmt.Sprintf("Invalid date for %s: %q (use YYYY-MM-DD)", col.Name, CleanCell(raw))
	default:
		return nil, fmt.Sprintf("Unsupported type for %s", col.Name)
	}
}

// fieldTypeName returns a human-readable name for a field type.
func fieldTypeName(ft FieldType) string {
	switch ft {
	case FieldText:
		return "text"
	case FieldEnum:
		return "enum"
	case FieldDate:
		return "date"
	case FieldInt:
		return "integer"
	case FieldBool:
		return "boolean"
	case FieldEmail:
		return "email"
	default:
		return "unknown"
	}
}
