package core

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func schemaDef() ImportDefinition {
	return ImportDefinition{
		Info: ImportInfo{Key: "cadets"},
		Columns: []ColumnSpec{
			{Name: "full_name", Required: true},
			{Name: "email", Required: true},
			{Name: "notes"},
		},
	}
}

func TestValidateHeaders_OK(t *testing.T) {
	idx, err := ValidateHeaders(schemaDef(), []string{"email", "", "full_name"})
	if err != nil {
		t.Fatalf("ValidateHeaders: %v", err)
	}
	want := HeaderIndex{"email": 0, "full_name": 2}
	if !reflect.DeepEqual(idx, want) {
		t.Errorf("index = %v, want %v", idx, want)
	}
}

func TestValidateHeaders_Mismatch(t *testing.T) {
	_, err := ValidateHeaders(schemaDef(), []string{"full_name", "emial", "notes", "notes", "zzz"})

	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want SchemaError", err)
	}
	if want := []string{"emial", "zzz"}; !reflect.DeepEqual(se.Unknown, want) {
		t.Errorf("Unknown = %v, want %v", se.Unknown, want)
	}
	if want := []string{"email"}; !reflect.DeepEqual(se.Missing, want) {
		t.Errorf("Missing = %v, want %v", se.Missing, want)
	}
	if want := []string{"notes"}; !reflect.DeepEqual(se.Duplicate, want) {
		t.Errorf("Duplicate = %v, want %v", se.Duplicate, want)
	}
	if se.Suggestions["emial"] != "email" {
		t.Errorf("suggestion for emial = %q", se.Suggestions["emial"])
	}
	if _, ok := se.Suggestions["zzz"]; ok {
		t.Errorf("unexpected suggestion for zzz")
	}
	if msg := err.Error(); !strings.Contains(msg, "emial (did you mean email?)") {
		t.Errorf("message = %q", msg)
	}
}

func TestRawRow(t *testing.T) {
	idx := HeaderIndex{"email": 1, "full_name": 0, "notes": 5}
	got := rawRow(idx, SheetRow{Cells: []string{"Asha", "a@example.com"}})
	want := map[string]string{"full_name": "Asha", "email": "a@example.com", "notes": ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rawRow = %v, want %v", got, want)
	}
}
