package core

import (
	"context"
	"time"
)

// Status is the classification of a single spreadsheet row.
type Status string

const (
	StatusReady             Status = "READY"
	StatusReadyWithWarnings Status = "READY_WITH_WARNINGS"
	StatusSkip              Status = "SKIP"
	StatusFail              Status = "FAIL"
)

// Eligible reports whether a row with this status may be created.
func (s Status) Eligible() bool {
	return s == StatusReady || s == StatusReadyWithWarnings
}

// Outcome is what Commit did with a row.
type Outcome string

const (
	OutcomeCreated Outcome = "CREATED"
	OutcomeSkipped Outcome = "SKIPPED"
)

// FieldType represents the expected data type for a spreadsheet column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldInt
	FieldBool
	FieldEmail
)

// ColumnSpec defines the contract and normalization rules for one column.
type ColumnSpec struct {
	Name       string              // Normalized header name, e.g. "full_name"
	Type       FieldType           // Expected data type
	Required   bool                // Header must be present and the cell non-empty
	EnumValues []string            // Valid values for FieldEnum
	Normalizer func(string) string // Optional transformation applied before type conversion
}

// ImportInfo contains display information about an import type.
type ImportInfo struct {
	Key         string     `json:"key"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Policy      GatePolicy `json:"gate_policy"`
	Required    []string   `json:"required_columns"`
	Optional    []string   `json:"optional_columns"`
}

// Fields holds typed, nullable values keyed by column or derived name.
// A nil value means null.
type Fields map[string]any

// Text returns the string value for key, or "" when null.
func (f Fields) Text(key string) string {
	s, _ := f[key].(string)
	return s
}

// TextPtr returns a pointer to the string value, or nil when null.
func (f Fields) TextPtr(key string) *string {
	s, ok := f[key].(string)
	if !ok {
		return nil
	}
	return &s
}

// Bool returns the boolean value and whether it was set.
func (f Fields) Bool(key string) (bool, bool) {
	b, ok := f[key].(bool)
	return b, ok
}

// Int returns the integer value and whether it was set.
func (f Fields) Int(key string) (int, bool) {
	i, ok := f[key].(int)
	return i, ok
}

// Date returns the date value and whether it was set.
func (f Fields) Date(key string) (time.Time, bool) {
	t, ok := f[key].(time.Time)
	return t, ok
}

// DatePtr returns a pointer to the date value, or nil when null.
func (f Fields) DatePtr(key string) *time.Time {
	t, ok := f[key].(time.Time)
	if !ok {
		return nil
	}
	return &t
}

// ID returns an identifier stored by a resolver, and whether it was set.
func (f Fields) ID(key string) (int64, bool) {
	id, ok := f[key].(int64)
	return id, ok
}

// ImportRow is one data row of an uploaded sheet as it moves through the
// preview pipeline. It is built fresh on every call and never persisted.
type ImportRow struct {
	RowNumber  int               `json:"row_number"`
	Status     Status            `json:"status"`
	Raw        map[string]string `json:"input"`
	Normalized Fields            `json:"normalized"`
	Derived    Fields            `json:"derived"`
	Issues     []string          `json:"issues"`

	failures int
	warnings int
	key      string
}

// NewImportRow creates an unclassified row.
func NewImportRow(rowNumber int, raw map[string]string) *ImportRow {
	return &ImportRow{
		RowNumber:  rowNumber,
		Raw:        raw,
		Normalized: Fields{},
		Derived:    Fields{},
		Issues:     []string{},
	}
}

// Fail records a structural problem. Any failure classifies the row FAIL.
func (r *ImportRow) Fail(msg string) {
	r.failures++
	r.Issues = append(r.Issues, msg)
}

// Warn records a non-fatal problem.
func (r *ImportRow) Warn(msg string) {
	r.warnings++
	r.Issues = append(r.Issues, msg)
}

// Failed reports whether any structural problem was recorded.
func (r *ImportRow) Failed() bool { return r.failures > 0 }

// Warned reports whether any soft warning was recorded.
func (r *ImportRow) Warned() bool { return r.warnings > 0 }

// Key returns the natural key computed during classification.
func (r *ImportRow) Key() string { return r.key }

// clone returns a copy that can be re-resolved without touching r.
func (r *ImportRow) clone() *ImportRow {
	c := NewImportRow(r.RowNumber, r.Raw)
	for k, v := range r.Normalized {
		c.Normalized[k] = v
	}
	for k, v := range r.Derived {
		c.Derived[k] = v
	}
	return c
}

// PreviewSummary holds counts per status.
type PreviewSummary struct {
	Total             int `json:"total"`
	Ready             int `json:"ready"`
	ReadyWithWarnings int `json:"ready_with_warnings"`
	Skip              int `json:"skip"`
	Fail              int `json:"fail"`
}

// PreviewReport is the read-only result of analyzing a file.
type PreviewReport struct {
	ImportType       string         `json:"import_type"`
	Summary          PreviewSummary `json:"summary"`
	Rows             []*ImportRow   `json:"rows"`
	Notes            []string       `json:"notes"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
}

// CommitSummary holds aggregate commit counts. Total = Created + Skipped + Fail.
type CommitSummary struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Fail    int `json:"fail"`
}

// RowResult is the per-row outcome of a commit.
type RowResult struct {
	RowNumber     int      `json:"row_number"`
	PreviewStatus Status   `json:"preview_status"`
	CommitOutcome Outcome  `json:"commit_outcome"`
	CreatedID     *int64   `json:"created_id"`
	Issues        []string `json:"issues"`
}

// CommitResult is produced once per Commit call.
type CommitResult struct {
	BatchID    string        `json:"batch_id"`
	ImportType string        `json:"import_type"`
	Summary    CommitSummary `json:"summary"`
	Results    []RowResult   `json:"results"`
	Notes      []string      `json:"notes"`
}

// CommitRequest is the input to Service.Commit.
type CommitRequest struct {
	ImportType string
	FileName   string
	Data       []byte
}

// Resolver is built once per call from bulk lookups and resolves rows
// against them. Implementations must be safe for concurrent Resolve calls.
type Resolver interface {
	// Resolve resolves references (ids, taxonomy) into row.Derived and
	// records reference problems as failures.
	Resolve(row *ImportRow)
	// Exists reports whether the row's natural key is already stored.
	Exists(row *ImportRow) (reason string, exists bool)
	// Notes returns file-level observations.
	Notes() []string
}

// BatchChecker is implemented by resolvers that check rows against each other.
// CheckBatch runs once, sequentially, after every row has been resolved.
type BatchChecker interface {
	CheckBatch(rows []*ImportRow)
}

// NormalizeFunc applies domain derivation after typed conversion. It must be pure.
type NormalizeFunc func(row *ImportRow)

// PrepareFunc performs the bulk lookups a file needs and returns a Resolver.
type PrepareFunc func(ctx context.Context, q Querier, rows []*ImportRow) (Resolver, error)

// NaturalKeyFunc returns the duplicate-detection key of a resolved row.
type NaturalKeyFunc func(row *ImportRow) string

// ResolveDepsFunc creates or reuses dependent rows for a create-candidate.
// It runs inside the commit transaction before the row's savepoint.
type ResolveDepsFunc func(ctx context.Context, b *Batch, row *ImportRow) error

// InsertFunc inserts the primary record and returns its id.
type InsertFunc func(ctx context.Context, b *Batch, row *ImportRow) (int64, error)

// ImportDefinition contains everything needed to process one import type.
type ImportDefinition struct {
	Info        ImportInfo
	Columns     []ColumnSpec
	Normalize   NormalizeFunc
	Prepare     PrepareFunc
	NaturalKey  NaturalKeyFunc
	ResolveDeps ResolveDepsFunc
	Insert      InsertFunc

	// TaxonomyColumns lists columns whose template cells get a drop-down
	// fed by the ship-type taxonomy.
	TaxonomyColumns []string
	// CreatesTaxonomy is set when unseen taxonomy names are created on
	// commit rather than rejected.
	CreatesTaxonomy bool
}

// Column returns the ColumnSpec named name.
func (d ImportDefinition) Column(name string) (ColumnSpec, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}
