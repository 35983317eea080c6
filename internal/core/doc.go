// Package core provides the business logic for spreadsheet import operations.
//
// This package is the heart of the importer, containing all domain logic
// independent of any transport layer. It is used by the HTTP server, the
// keelctl CLI, and tests without modification.
//
// # Two-phase protocol
//
// Every import runs in two phases over the same uploaded buffer:
//
//  1. [Service.Preview] parses the first worksheet, enforces the column
//     contract, normalizes each row, resolves references with bulk lookups,
//     and classifies every row READY, READY_WITH_WARNINGS, SKIP or FAIL. It
//     never writes.
//  2. [Service.Commit] re-runs the exact same preview, applies the import's
//     [GatePolicy], re-checks existence inside one transaction and inserts
//     the rows that are still eligible. A unique violation raised by the
//     store is treated as a concurrent writer winning the race and the row
//     is skipped.
//
// # Import Registry
//
// Import types are registered at init time using [Register]. Each
// [ImportDefinition] carries the column contract and the hooks the pipeline
// calls:
//
//	core.Register(core.ImportDefinition{
//	    Info:       core.ImportInfo{Key: "vessels", Label: "Vessels", Policy: core.PolicyLenient},
//	    Columns:    []core.ColumnSpec{{Name: "imo_number", Required: true}},
//	    Prepare:    prepareVessels,
//	    NaturalKey: vesselKey,
//	    Insert:     insertVessel,
//	})
//
// # Taxonomy
//
// Ship types are read once per call into an immutable [Taxonomy] and passed
// explicitly; there is no package-level cache.
//
// # Errors
//
// Whole-file problems surface as [FileFormatError] or [SchemaError] before
// any row is processed. A STRICT gate failure returns [CommitAbortedError]
// with the preview attached. Store failures during commit return
// [PersistenceError] after a full rollback. Row problems never become Go
// errors; they are issues on the row.
package core
