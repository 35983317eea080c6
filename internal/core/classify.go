package core

import "fmt"

// Notes appended to a preview when the corresponding count is non-zero.
const (
	NoteFailed   = "some rows failed validation"
	NoteWarnings = "some rows have warnings"
	NoteSkipped  = "some rows already exist and will be skipped"
)

// Classify assigns row its status. The decision order is fixed and each step
// short-circuits: structural failure, then natural-key conflict, then soft
// warnings. A structurally invalid row is never reported as a duplicate.
func Classify(row *ImportRow, r Resolver) Status {
	switch {
	case row.Failed():
		row.Status = StatusFail
	case conflict(row, r):
		row.Status = StatusSkip
	case row.Warned():
		row.Status = StatusReadyWithWarnings
	default:
		row.Status = StatusReady
	}
	return row.Status
}

func conflict(row *ImportRow, r Resolver) bool {
	reason, exists := r.Exists(row)
	if !exists {
		return false
	}
	row.Issues = append(row.Issues, reason)
	return true
}

// classifyRows classifies resolved rows in row order. Besides the stored
// conflicts, a row whose natural key repeats an earlier eligible row of the
// same file is skipped, and resolvers implementing BatchChecker get a final
// look at the rows that are still eligible.
func classifyRows(def ImportDefinition, r Resolver, rows []*ImportRow) {
	firstSeen := make(map[string]int, len(rows))

	for _, row := range rows {
		if Classify(row, r) == StatusFail || row.Status == StatusSkip {
			continue
		}
		row.key = def.NaturalKey(row)
		if row.key == "" {
			continue
		}
		if first, dup := firstSeen[row.key]; dup {
			row.Status = StatusSkip
			row.Issues = append(row.Issues, fmt.Sprintf("Duplicate of row %d in this file", first))
			continue
		}
		firstSeen[row.key] = row.RowNumber
	}

	checker, ok := r.(BatchChecker)
	if !ok {
		return
	}
	eligible := make([]*ImportRow, 0, len(rows))
	for _, row := range rows {
		if row.Status.Eligible() {
			eligible = append(eligible, row)
		}
	}
	checker.CheckBatch(eligible)
	for _, row := range eligible {
		if row.Failed() {
			row.Status = StatusFail
		}
	}
}

// BuildReport aggregates classified rows into summary counts and notes.
func BuildReport(importType string, rows []*ImportRow, notes []string) *PreviewReport {
	report := &PreviewReport{
		ImportType: importType,
		Rows:       rows,
		Notes:      []string{},
	}

	for _, row := range rows {
		report.Summary.Total++
		switch row.Status {
		case StatusReady:
			report.Summary.Ready++
		case StatusReadyWithWarnings:
			report.Summary.ReadyWithWarnings++
		case StatusSkip:
			report.Summary.Skip++
		case StatusFail:
			report.Summary.Fail++
		}
	}

	if report.Summary.Fail > 0 {
		report.Notes = append(report.Notes, NoteFailed)
	}
	if report.Summary.ReadyWithWarnings > 0 {
		report.Notes = append(report.Notes, NoteWarnings)
	}
	if report.Summary.Skip > 0 {
		report.Notes = append(report.Notes, NoteSkipped)
	}
	report.Notes = append(report.Notes, notes...)
	return report
}
