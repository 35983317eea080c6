package domains

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/amengaji/Keel/internal/core"
)

var imoPattern = regexp.MustCompile(`^[0-9]{7}$`)

// normalizeIMO strips an optional "IMO" prefix and inner spaces and reports
// whether the remainder is a seven-digit number.
func normalizeIMO(s string) (string, bool) {
	s = strings.ToUpper(core.CleanCell(s))
	s = strings.TrimPrefix(s, "IMO")
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(s, ":")
	return s, imoPattern.MatchString(s)
}

// checkIMO validates and rewrites the IMO column of row in place.
func checkIMO(row *core.ImportRow, column string) {
	raw := row.Normalized.Text(column)
	if raw == "" {
		return
	}
	imo, ok := normalizeIMO(raw)
	if !ok {
		row.Normalized[column] = nil
		row.Fail(fmt.Sprintf("Invalid IMO number for %s: %q (must be 7 digits)", column, raw))
		return
	}
	row.Normalized[column] = imo
}

// distinct collects the non-empty text values of key across rows that have
// not failed, preserving first-seen order.
func distinct(rows []*core.ImportRow, key string) []string {
	seen := make(map[string]bool, len(rows))
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Failed() {
			continue
		}
		v := row.Normalized.Text(key)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// idPtr returns a pointer to the id stored under key, or nil.
func idPtr(f core.Fields, key string) *int64 {
	id, ok := f.ID(key)
	if !ok {
		return nil
	}
	return &id
}

// overlaps reports whether [aStart, aEnd] and [bStart, bEnd] intersect.
// A nil end is open-ended.
func overlaps(aStart time.Time, aEnd *time.Time, bStart time.Time, bEnd *time.Time) bool {
	if aEnd != nil && aEnd.Before(bStart) {
		return false
	}
	if bEnd != nil && bEnd.Before(aStart) {
		return false
	}
	return true
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// noNotes is embedded by resolvers without file-level observations.
type noNotes struct{}

func (noNotes) Notes() []string { return nil }
