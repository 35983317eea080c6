package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/amengaji/Keel/internal/logging"
)

// Commit re-runs the preview on the same buffer, applies the import's gate
// policy, re-checks existence inside one transaction and creates the rows
// that are still eligible. Writes are all-or-nothing.
func (s *Service) Commit(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	def, err := s.definition(req.ImportType)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.commitTimeout)
	defer cancel()

	log := logging.WithFields(ctx, "import_type", def.Info.Key, "file", req.FileName)
	start := time.Now()

	result, err := s.commit(ctx, def, req)
	outcome := commitOutcome(result, err)
	importMetrics().commits.WithLabelValues(def.Info.Key, outcome).Inc()
	importMetrics().commitDuration.WithLabelValues(def.Info.Key, outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		var aborted *CommitAbortedError
		if errors.As(err, &aborted) {
			log.Warn("commit aborted by gate", "failed_rows", aborted.Failed)
		} else {
			log.Error("commit failed", "error", err)
		}
		return nil, err
	}

	observeCommit(def.Info.Key, result)
	log.Info("commit complete",
		"batch_id", result.BatchID,
		"created", result.Summary.Created,
		"skipped", result.Summary.Skipped,
		"fail", result.Summary.Fail,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	s.archiveSource(ctx, result, req)
	return result, nil
}

func commitOutcome(result *CommitResult, err error) string {
	var aborted *CommitAbortedError
	switch {
	case errors.As(err, &aborted):
		return "aborted"
	case err != nil:
		return "failed"
	case result.Summary.Created == 0:
		return "noop"
	default:
		return "committed"
	}
}

func (s *Service) commit(ctx context.Context, def ImportDefinition, req CommitRequest) (*CommitResult, error) {
	report, err := runPreview(ctx, s.store, def, req.Data, s.workers)
	if err != nil {
		return nil, err
	}
	importMetrics().previews.WithLabelValues(def.Info.Key, "ok").Inc()

	candidates, err := s.policyFor(def).Gate(report)
	if err != nil {
		return nil, err
	}

	result := newCommitResult(uuid.NewString(), def.Info.Key, report)
	batch := ImportBatch{
		ID:         result.BatchID,
		ImportType: def.Info.Key,
		FileName:   req.FileName,
		FileSHA256: checksum(req.Data),
		ClientIP:   ClientIPFromContext(ctx),
		UserAgent:  UserAgentFromContext(ctx),
	}

	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		plan, err := planCommit(ctx, tx, def, candidates)
		if err != nil {
			return err
		}
		for _, skip := range plan.skipped {
			result.skip(skip.row, skip.reason)
		}

		b := newBatch(result.BatchID, def.Info.Key, tx, plan.taxonomy)
		if err := execute(ctx, b, def, plan.creates, result); err != nil {
			return err
		}

		result.finish(b, len(plan.skipped))
		batch.Total = result.Summary.Total
		batch.Created = result.Summary.Created
		batch.Skipped = result.Summary.Skipped
		batch.Failed = result.Summary.Fail
		if s.archive != nil && batch.Created > 0 {
			batch.ArchiveKey = archiveKey(def.Info.Key, result.BatchID, req.FileName, req.Data)
		}
		if err := tx.RecordImportBatch(ctx, batch); err != nil {
			return &PersistenceError{Op: "record import batch", Err: err}
		}
		return nil
	})
	if err != nil {
		var pe *PersistenceError
		if !errors.As(err, &pe) {
			err = &PersistenceError{Op: "commit transaction", Err: err}
		}
		return nil, err
	}

	return result, nil
}

// commitPlan is the outcome of the in-transaction existence re-check.
type commitPlan struct {
	taxonomy Taxonomy
	creates  []*ImportRow
	skipped  []planSkip
}

type planSkip struct {
	row    int
	reason string
}

// planCommit re-resolves the candidates against the transaction's view of
// the store. A candidate whose key now exists, or which no longer resolves,
// is skipped; the rest are re-resolved copies ready for insert.
func planCommit(ctx context.Context, tx Tx, def ImportDefinition, candidates []*ImportRow) (*commitPlan, error) {
	taxonomy, err := LoadTaxonomy(ctx, tx)
	if err != nil {
		return nil, &PersistenceError{Op: "load taxonomy", Err: err}
	}

	plan := &commitPlan{taxonomy: taxonomy}
	if len(candidates) == 0 {
		return plan, nil
	}

	fresh := make([]*ImportRow, len(candidates))
	for i, row := range candidates {
		fresh[i] = row.clone()
	}

	resolver, err := def.Prepare(ctx, tx, fresh)
	if err != nil {
		return nil, &PersistenceError{Op: "re-check existing keys", Err: err}
	}

	for _, row := range fresh {
		resolver.Resolve(row)
		if row.Failed() {
			plan.skipped = append(plan.skipped, planSkip{row.RowNumber, "No longer valid at commit: " + strings.Join(row.Issues, "; ")})
			continue
		}
		if reason, exists := resolver.Exists(row); exists {
			plan.skipped = append(plan.skipped, planSkip{row.RowNumber, reason + " (created after preview)"})
			continue
		}
		plan.creates = append(plan.creates, row)
	}
	return plan, nil
}

// execute inserts the create-candidates. Each row, dependencies included,
// runs under its own savepoint so a unique violation from a concurrent
// writer only skips that row and whatever it created; any other error aborts
// the whole transaction.
func execute(ctx context.Context, b *Batch, def ImportDefinition, creates []*ImportRow, result *CommitResult) error {
	for i, row := range creates {
		sp := fmt.Sprintf("sp_%d", i)
		if err := b.Tx.Savepoint(ctx, sp); err != nil {
			return &PersistenceError{Op: "savepoint", RowNumber: row.RowNumber, Err: err}
		}
		m := b.mark()

		id, op, err := createRow(ctx, b, def, row)
		if errors.Is(err, ErrDuplicate) {
			if rbErr := b.Tx.RollbackToSavepoint(ctx, sp); rbErr != nil {
				return &PersistenceError{Op: "rollback to savepoint", RowNumber: row.RowNumber, Err: rbErr}
			}
			b.restore(m)
			result.skip(row.RowNumber, "Already exists (inserted concurrently by another import)")
			continue
		}
		if err != nil {
			return &PersistenceError{Op: op, RowNumber: row.RowNumber, Err: err}
		}

		if err := b.Tx.ReleaseSavepoint(ctx, sp); err != nil {
			return &PersistenceError{Op: "release savepoint", RowNumber: row.RowNumber, Err: err}
		}
		result.created(row.RowNumber, id)
	}
	return nil
}

func createRow(ctx context.Context, b *Batch, def ImportDefinition, row *ImportRow) (int64, string, error) {
	if def.ResolveDeps != nil {
		if err := def.ResolveDeps(ctx, b, row); err != nil {
			return 0, "resolve dependencies", err
		}
	}
	id, err := def.Insert(ctx, b, row)
	return id, "insert " + def.Info.Key, err
}

// newCommitResult seeds one result per preview row. Rows are SKIPPED until
// execute marks them CREATED.
func newCommitResult(batchID, importType string, report *PreviewReport) *CommitResult {
	result := &CommitResult{
		BatchID:    batchID,
		ImportType: importType,
		Results:    make([]RowResult, len(report.Rows)),
		Notes:      []string{},
	}
	for i, row := range report.Rows {
		result.Results[i] = RowResult{
			RowNumber:     row.RowNumber,
			PreviewStatus: row.Status,
			CommitOutcome: OutcomeSkipped,
			Issues:        append([]string{}, row.Issues...),
		}
	}
	return result
}

func (r *CommitResult) find(rowNumber int) *RowResult {
	for i := range r.Results {
		if r.Results[i].RowNumber == rowNumber {
			return &r.Results[i]
		}
	}
	return nil
}

func (r *CommitResult) skip(rowNumber int, reason string) {
	if rr := r.find(rowNumber); rr != nil {
		rr.CommitOutcome = OutcomeSkipped
		rr.Issues = append(rr.Issues, reason)
	}
}

func (r *CommitResult) created(rowNumber int, id int64) {
	if rr := r.find(rowNumber); rr != nil {
		rr.CommitOutcome = OutcomeCreated
		rr.CreatedID = &id
	}
}

// finish computes the summary and notes.
func (r *CommitResult) finish(b *Batch, raceSkips int) {
	r.Summary = CommitSummary{Total: len(r.Results)}
	for _, rr := range r.Results {
		switch {
		case rr.CommitOutcome == OutcomeCreated:
			r.Summary.Created++
		case rr.PreviewStatus == StatusFail:
			r.Summary.Fail++
		default:
			r.Summary.Skipped++
		}
	}

	if r.Summary.Fail > 0 {
		r.Notes = append(r.Notes, fmt.Sprintf("%d row(s) failed validation and were not imported", r.Summary.Fail))
	}
	if r.Summary.Skipped > 0 {
		r.Notes = append(r.Notes, fmt.Sprintf("%d row(s) skipped because they already exist", r.Summary.Skipped))
	}
	if raceSkips > 0 {
		r.Notes = append(r.Notes, fmt.Sprintf("%d row(s) changed between preview and commit and were skipped", raceSkips))
	}
	if names := b.CreatedShipTypes(); len(names) > 0 {
		r.Notes = append(r.Notes, "created ship types: "+strings.Join(names, ", "))
	}
	if r.Summary.Created == 0 {
		r.Notes = append(r.Notes, "nothing to create; no changes were made")
	}
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func archiveKey(importType, batchID, fileName string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		ext = mimetype.Detect(data).Extension()
	}
	return importType + "/" + batchID + ext
}

// archiveSource stores the committed workbook. Failures are logged only; the
// commit has already succeeded.
func (s *Service) archiveSource(ctx context.Context, result *CommitResult, req CommitRequest) {
	if s.archive == nil || result.Summary.Created == 0 {
		return
	}
	key := archiveKey(result.ImportType, result.BatchID, req.FileName, req.Data)
	contentType := mimetype.Detect(req.Data).String()
	if err := s.archive.Put(context.WithoutCancel(ctx), key, req.Data, contentType); err != nil {
		logging.WithFields(ctx, "batch_id", result.BatchID, "key", key).Warn("archive source failed", "error", err)
	}
}
