package core

import (
	"strings"
	"testing"
	"time"
)

func TestNormalizeBool(t *testing.T) {
	tests := []struct {
		in   string
		want *bool
	}{
		{"yes", ptr(true)},
		{" Y ", ptr(true)},
		{"TRUE", ptr(true)},
		{"1", ptr(true)},
		{"no", ptr(false)},
		{"n", ptr(false)},
		{"0", ptr(false)},
		{"maybe", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := NormalizeBool(tt.in)
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Errorf("NormalizeBool(%q) = %v, want %v", tt.in, deref(got), deref(tt.want))
		}
	}
}

func TestNormalizeInt(t *testing.T) {
	tests := []struct {
		in   string
		want *int
	}{
		{"3", ptr(3)},
		{" 3.0 ", ptr(3)},
		{"1,200", ptr(1200)},
		{"-2", ptr(-2)},
		{"3.5", nil},
		{"three", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := NormalizeInt(tt.in)
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Errorf("NormalizeInt(%q) = %v, want %v", tt.in, deref(got), deref(tt.want))
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	inputs := []string{
		"2026-03-15",
		"2026/03/15",
		"3/15/2026",
		"15 Mar 2026",
		"Mar 15, 2026",
		"20260315",
		"2026-03-15 08:30:00",
		"46096", // Excel serial
		`="2026-03-15"`,
	}
	for _, in := range inputs {
		got := NormalizeDate(in)
		if got == nil {
			t.Errorf("NormalizeDate(%q) = nil", in)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("NormalizeDate(%q) = %v, want %v", in, got, want)
		}
	}

	for _, in := range []string{"", "not a date", "2026-13-40", "NaN", "nan", "Inf", "-Inf", "1e3", "4.6e4", "+46096", "-46096", "0x1F"} {
		if got := NormalizeDate(in); got != nil {
			t.Errorf("NormalizeDate(%q) = %v, want nil", in, got)
		}
	}
}

func TestNormalizeDate_TwoDigitYear(t *testing.T) {
	got := NormalizeDate("1/2/99")
	if got == nil || got.Year() != 1999 {
		t.Errorf("NormalizeDate(1/2/99) = %v, want 1999", got)
	}
	got = NormalizeDate("1/2/26")
	if got == nil || got.Year() != 2026 {
		t.Errorf("NormalizeDate(1/2/26) = %v, want 2026", got)
	}
}

func TestNormalizeEnum(t *testing.T) {
	tests := map[string]string{
		"Deck Cadet":     "DECK_CADET",
		"deck-cadet":     "DECK_CADET",
		" engine  cadet": "ENGINE_CADET",
		"ETO_CADET":      "ETO_CADET",
	}
	for in, want := range tests {
		if got := NormalizeEnum(in); got != want {
			t.Errorf("NormalizeEnum(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got, ok := NormalizeEmail("  Asha.Rao@Example.COM "); !ok || got != "asha.rao@example.com" {
		t.Errorf("NormalizeEmail = %q, %v", got, ok)
	}
	for _, bad := range []string{"", "asha", "asha@", "@example.com", "a b@example.com"} {
		if _, ok := NormalizeEmail(bad); ok {
			t.Errorf("NormalizeEmail(%q) accepted", bad)
		}
	}
}

func TestNormalizeRow(t *testing.T) {
	def := ImportDefinition{Columns: []ColumnSpec{
		{Name: "full_name", Type: FieldText, Required: true},
		{Name: "email", Type: FieldEmail, Required: true},
		{Name: "trainee_type", Type: FieldEnum, EnumValues: []string{"DECK_CADET"}},
		{Name: "part_number", Type: FieldInt},
		{Name: "trb_applicable", Type: FieldBool},
		{Name: "date_joined", Type: FieldDate},
		{Name: "notes", Type: FieldText, Normalizer: strings.ToUpper},
	}}

	row := NewImportRow(2, map[string]string{
		"full_name":      "  ",
		"email":          "ASHA@example.com",
		"trainee_type":   "captain",
		"part_number":    "x",
		"trb_applicable": "perhaps",
		"date_joined":    "yesterday",
		"notes":          "hello",
	})
	normalizeRow(def, row)

	wantIssues := []string{
		"Missing required field: full_name",
		`Invalid trainee_type: "captain" (allowed: DECK_CADET)`,
		`Invalid integer for part_number: "x"`,
		`Invalid boolean for trb_applicable: "perhaps" (use yes/no)`,
		`Invalid date for date_joined: "yesterday" (use YYYY-MM-DD)`,
	}
	if len(row.Issues) != len(wantIssues) {
		t.Fatalf("issues = %q, want %q", row.Issues, wantIssues)
	}
	for i, want := range wantIssues {
		if row.Issues[i] != want {
			t.Errorf("issue %d = %q, want %q", i, row.Issues[i], want)
		}
	}
	if !row.Failed() {
		t.Error("row not failed")
	}
	if got := row.Normalized.Text("email"); got != "asha@example.com" {
		t.Errorf("email = %q", got)
	}
	if got := row.Normalized.Text("notes"); got != "HELLO" {
		t.Errorf("notes = %q, want normalizer applied", got)
	}
	if v, present := row.Normalized["full_name"]; !present || v != nil {
		t.Errorf("full_name = %v, want explicit null", v)
	}
}

func TestNormalizeRow_AbsentOptionalColumn(t *testing.T) {
	def := ImportDefinition{Columns: []ColumnSpec{
		{Name: "email", Type: FieldEmail, Required: true},
		{Name: "notes", Type: FieldText},
	}}
	row := NewImportRow(2, map[string]string{"email": "a@example.com"})
	normalizeRow(def, row)

	if row.Failed() || row.Warned() {
		t.Errorf("issues = %q", row.Issues)
	}
	if row.Normalized.TextPtr("notes") != nil {
		t.Error("absent column should be null")
	}
}

func ptr[T any](v T) *T { return &v }

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func TestNormalizeRow_NumericLookingDateFails(t *testing.T) {
	def := ImportDefinition{Columns: []ColumnSpec{
		{Name: "date_joined", Type: FieldDate, Required: true},
		{Name: "date_left", Type: FieldDate},
	}}
	row := NewImportRow(2, map[string]string{"date_joined": "NaN", "date_left": "1e3"})
	normalizeRow(def, row)

	if !row.Failed() {
		t.Fatalf("row not failed, normalized = %v", row.Normalized)
	}
	if _, ok := row.Normalized.Date("date_joined"); ok {
		t.Error("date_joined stored from NaN")
	}
	if row.Normalized.DatePtr("date_left") != nil {
		t.Error("date_left stored from 1e3")
	}
}
