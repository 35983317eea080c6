package core

import (
	"reflect"
	"testing"
)

// stubResolver reports the keys in existing as stored and fails rows whose
// email is listed in overlaps during CheckBatch.
type stubResolver struct {
	existing map[string]bool
	notes    []string
	batch    func(rows []*ImportRow)
}

func (s *stubResolver) Resolve(*ImportRow) {}

func (s *stubResolver) Exists(row *ImportRow) (string, bool) {
	if s.existing[row.Normalized.Text("email")] {
		return "already stored", true
	}
	return "", false
}

func (s *stubResolver) Notes() []string { return s.notes }

type stubBatchResolver struct {
	*stubResolver
}

func (s stubBatchResolver) CheckBatch(rows []*ImportRow) { s.batch(rows) }

func stubRow(n int, email string) *ImportRow {
	row := NewImportRow(n, map[string]string{"email": email})
	row.Normalized["email"] = email
	return row
}

func stubDef() ImportDefinition {
	return ImportDefinition{
		Info:       ImportInfo{Key: "stub"},
		NaturalKey: func(row *ImportRow) string { return row.Normalized.Text("email") },
	}
}

func TestClassify_Priority(t *testing.T) {
	r := &stubResolver{existing: map[string]bool{"taken": true}}

	failedAndTaken := stubRow(2, "taken")
	failedAndTaken.Fail("bad")
	failedAndTaken.Warn("meh")
	if got := Classify(failedAndTaken, r); got != StatusFail {
		t.Errorf("failed row = %s, want FAIL", got)
	}
	if want := []string{"bad", "meh"}; !reflect.DeepEqual(failedAndTaken.Issues, want) {
		t.Errorf("failed row issues = %q, want no conflict reason", failedAndTaken.Issues)
	}

	takenAndWarned := stubRow(3, "taken")
	takenAndWarned.Warn("meh")
	if got := Classify(takenAndWarned, r); got != StatusSkip {
		t.Errorf("existing row = %s, want SKIP", got)
	}

	warned := stubRow(4, "new")
	warned.Warn("meh")
	if got := Classify(warned, r); got != StatusReadyWithWarnings {
		t.Errorf("warned row = %s, want READY_WITH_WARNINGS", got)
	}

	if got := Classify(stubRow(5, "other"), r); got != StatusReady {
		t.Errorf("clean row = %s, want READY", got)
	}
}

func TestClassifyRows_InFileDuplicates(t *testing.T) {
	r := &stubResolver{existing: map[string]bool{}}
	failed := stubRow(3, "a")
	failed.Fail("bad")
	rows := []*ImportRow{failed, stubRow(4, "a"), stubRow(5, "b"), stubRow(6, "a")}

	classifyRows(stubDef(), r, rows)

	want := []Status{StatusFail, StatusReady, StatusReady, StatusSkip}
	for i, row := range rows {
		if row.Status != want[i] {
			t.Errorf("row %d = %s, want %s", row.RowNumber, row.Status, want[i])
		}
	}
	if got := rows[3].Issues; len(got) != 1 || got[0] != "Duplicate of row 4 in this file" {
		t.Errorf("duplicate issues = %q", got)
	}
	if rows[1].Key() != "a" {
		t.Errorf("Key() = %q", rows[1].Key())
	}
}

func TestClassifyRows_BatchChecker(t *testing.T) {
	var seen []int
	r := stubBatchResolver{&stubResolver{
		existing: map[string]bool{"taken": true},
		batch: func(rows []*ImportRow) {
			for _, row := range rows {
				seen = append(seen, row.RowNumber)
				if row.Normalized.Text("email") == "clash" {
					row.Fail("clashes with an earlier row")
				}
			}
		},
	}}
	rows := []*ImportRow{stubRow(2, "ok"), stubRow(3, "taken"), stubRow(4, "clash")}

	classifyRows(stubDef(), r, rows)

	if want := []int{2, 4}; !reflect.DeepEqual(seen, want) {
		t.Errorf("CheckBatch saw rows %v, want only eligible %v", seen, want)
	}
	if rows[2].Status != StatusFail {
		t.Errorf("clash row = %s, want FAIL", rows[2].Status)
	}
}

func TestBuildReport(t *testing.T) {
	rows := []*ImportRow{
		{RowNumber: 2, Status: StatusReady},
		{RowNumber: 3, Status: StatusReadyWithWarnings},
		{RowNumber: 4, Status: StatusSkip},
		{RowNumber: 5, Status: StatusFail},
		{RowNumber: 6, Status: StatusFail},
	}
	report := BuildReport("stub", rows, []string{"extra"})

	want := PreviewSummary{Total: 5, Ready: 1, ReadyWithWarnings: 1, Skip: 1, Fail: 2}
	if report.Summary != want {
		t.Errorf("Summary = %+v, want %+v", report.Summary, want)
	}
	if wantNotes := []string{NoteFailed, NoteWarnings, NoteSkipped, "extra"}; !reflect.DeepEqual(report.Notes, wantNotes) {
		t.Errorf("Notes = %q, want %q", report.Notes, wantNotes)
	}

	empty := BuildReport("stub", []*ImportRow{{Status: StatusReady}}, nil)
	if len(empty.Notes) != 0 {
		t.Errorf("clean report notes = %q", empty.Notes)
	}
}
