package core

import (
	"errors"
	"reflect"
	"testing"

	"github.com/amengaji/Keel/internal/testutil"
)

func TestParseWorkbook_XLSX(t *testing.T) {
	data := testutil.Workbook(t,
		[]any{"", ""},
		[]any{" Full  Name ", "EMAIL"},
		[]any{"Asha Rao", "asha@example.com"},
		[]any{"", ""},
		[]any{"Ben Ode"},
	)

	sheet, err := ParseWorkbook(data)
	if err != nil {
		t.Fatalf("ParseWorkbook: %v", err)
	}
	if want := []string{"full_name", "email"}; !reflect.DeepEqual(sheet.Headers, want) {
		t.Errorf("Headers = %v, want %v", sheet.Headers, want)
	}
	if len(sheet.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(sheet.Rows))
	}
	// Row numbers count from the header row, skipping blank rows.
	if sheet.Rows[0].Number != 2 || sheet.Rows[1].Number != 4 {
		t.Errorf("row numbers = %d, %d, want 2, 4", sheet.Rows[0].Number, sheet.Rows[1].Number)
	}
	if got := sheet.Rows[1].Value(1); got != "" {
		t.Errorf("short row Value(1) = %q, want empty", got)
	}
}

func TestParseWorkbook_CSV(t *testing.T) {
	data := []byte("\xEF\xBB\xBFfull_name,email\r\nAsha Rao,asha@example.com\r\n\"Ode, Ben\",ben@example.com\r\n")

	sheet, err := ParseWorkbook(data)
	if err != nil {
		t.Fatalf("ParseWorkbook: %v", err)
	}
	if sheet.Headers[0] != "full_name" {
		t.Errorf("BOM not stripped: %q", sheet.Headers[0])
	}
	if got := sheet.Rows[1].Value(0); got != "Ode, Ben" {
		t.Errorf("quoted cell = %q", got)
	}
}

func TestParseWorkbook_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		empty bool
	}{
		{"empty buffer", nil, true},
		{"header only", []byte("full_name,email\n"), true},
		{"blank lines only", []byte("\n\n  \n"), true},
		{"binary", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWorkbook(tt.data)
			var ffe *FileFormatError
			if !errors.As(err, &ffe) {
				t.Fatalf("err = %v, want FileFormatError", err)
			}
			if got := errors.Is(err, ErrEmptyWorkbook); got != tt.empty {
				t.Errorf("errors.Is(ErrEmptyWorkbook) = %v, want %v", got, tt.empty)
			}
		})
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := map[string]string{
		"Full Name":       "full_name",
		"  EMAIL ":        "email",
		"date\tjoined":    "date_joined",
		"\uFEFFimo_number": "imo_number",
	}
	for in, want := range tests {
		if got := NormalizeHeader(in); got != want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeUTF8(t *testing.T) {
	got := string(sanitizeUTF8([]byte("caf\xe9")))
	if got != "caf\uFFFD" {
		t.Errorf("sanitizeUTF8 = %q", got)
	}
}
