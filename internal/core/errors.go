package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

var (
	// ErrUnknownImport is returned for an import type that is not registered.
	ErrUnknownImport = errors.New("unknown import type")

	// ErrDuplicate is wrapped by stores when an insert hits a unique constraint.
	ErrDuplicate = errors.New("duplicate key")

	// ErrBatchNotFound is returned when a batch id has no history record.
	ErrBatchNotFound = errors.New("import batch not found")
)

// FileFormatError reports an unreadable or empty workbook.
type FileFormatError struct {
	Reason string
	Err    error
}

func (e *FileFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid file format: %s: %v", e.Reason, e.Err)
	}
	return "invalid file format: " + e.Reason
}

func (e *FileFormatError) Unwrap() error { return e.Err }

// SchemaError reports a header row that does not match the column contract.
type SchemaError struct {
	ImportType  string
	Unknown     []string
	Missing     []string
	Duplicate   []string
	Suggestions map[string]string // unknown header -> closest allowed column
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Unknown) > 0 {
		unknown := make([]string, len(e.Unknown))
		for i, h := range e.Unknown {
			unknown[i] = h
			if s, ok := e.Suggestions[h]; ok {
				unknown[i] = fmt.Sprintf("%s (did you mean %s?)", h, s)
			}
		}
		parts = append(parts, "unknown columns: "+strings.Join(unknown, ", "))
	}
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, "duplicate columns: "+strings.Join(e.Duplicate, ", "))
	}
	return fmt.Sprintf("schema mismatch for %s import: %s", e.ImportType, strings.Join(parts, "; "))
}

// CommitAbortedError is returned when a STRICT gate rejects a commit.
// Nothing was written. Preview holds the full report so the caller can fix
// the file and resubmit.
type CommitAbortedError struct {
	ImportType string
	Failed     int
	Preview    *PreviewReport
}

func (e *CommitAbortedError) Error() string {
	return fmt.Sprintf("commit aborted: %d row(s) failed validation for %s import", e.Failed, e.ImportType)
}

// PersistenceError reports an unexpected store failure during commit. The
// whole transaction was rolled back.
type PersistenceError struct {
	Op        string
	RowNumber int
	Err       error
}

func (e *PersistenceError) Error() string {
	if e.RowNumber > 0 {
		return fmt.Sprintf("persistence error: %s (row %d): %v", e.Op, e.RowNumber, e.Err)
	}
	return fmt.Sprintf("persistence error: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// suggestColumn returns the allowed column closest to header.
func suggestColumn(header string, allowed []string) (string, bool) {
	ranks := fuzzy.RankFindNormalizedFold(header, allowed)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target, true
	}

	best, bestDist := "", -1
	for _, a := range allowed {
		d := fuzzy.LevenshteinDistance(header, a)
		if bestDist < 0 || d < bestDist {
			best, bestDist = a, d
		}
	}
	if bestDist >= 0 && bestDist <= max(2, len(header)/3) {
		return best, true
	}
	return "", false
}
