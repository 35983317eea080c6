package core

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amengaji/Keel/internal/logging"
)

// Preview parses, validates, normalizes and classifies a workbook. It only
// reads from the store.
func (s *Service) Preview(ctx context.Context, importType string, data []byte) (*PreviewReport, error) {
	def, err := s.definition(importType)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	log := logging.WithFields(ctx, "import_type", def.Info.Key)
	start := time.Now()

	report, err := runPreview(ctx, s.store, def, data, s.workers)
	if err != nil {
		importMetrics().previews.WithLabelValues(def.Info.Key, "error").Inc()
		log.Warn("preview rejected", "error", err)
		return nil, err
	}
	report.ProcessingTimeMs = time.Since(start).Milliseconds()

	importMetrics().previews.WithLabelValues(def.Info.Key, "ok").Inc()
	observeRows(def.Info.Key, report)
	log.Info("preview complete",
		"rows", report.Summary.Total,
		"ready", report.Summary.Ready,
		"warnings", report.Summary.ReadyWithWarnings,
		"skip", report.Summary.Skip,
		"fail", report.Summary.Fail,
		"duration_ms", report.ProcessingTimeMs,
	)
	return report, nil
}

// runPreview is the read path shared by Preview and Commit:
// parse -> schema -> normalize -> bulk lookups -> resolve -> classify -> report.
func runPreview(ctx context.Context, q Querier, def ImportDefinition, data []byte, workers int) (*PreviewReport, error) {
	sheet, err := ParseWorkbook(data)
	if err != nil {
		return nil, err
	}

	idx, err := ValidateHeaders(def, sheet.Headers)
	if err != nil {
		return nil, err
	}

	rows := make([]*ImportRow, len(sheet.Rows))
	for i, r := range sheet.Rows {
		rows[i] = NewImportRow(r.Number, rawRow(idx, r))
	}

	err = forEachRow(ctx, rows, workers, func(row *ImportRow) {
		normalizeRow(def, row)
		if def.Normalize != nil {
			def.Normalize(row)
		}
	})
	if err != nil {
		return nil, err
	}

	resolver, err := def.Prepare(ctx, q, rows)
	if err != nil {
		return nil, err
	}
	if err := forEachRow(ctx, rows, workers, resolver.Resolve); err != nil {
		return nil, err
	}

	classifyRows(def, resolver, rows)
	return BuildReport(def.Info.Key, rows, resolver.Notes()), nil
}

// forEachRow applies fn to every row using up to workers goroutines. fn must
// only touch its own row.
func forEachRow(ctx context.Context, rows []*ImportRow, workers int, fn func(*ImportRow)) error {
	if len(rows) == 0 {
		return ctx.Err()
	}
	workers = max(1, min(workers, len(rows)))
	chunk := (len(rows) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(rows); start += chunk {
		part := rows[start:min(start+chunk, len(rows))]
		g.Go(func() error {
			for _, row := range part {
				if err := gctx.Err(); err != nil {
					return err
				}
				fn(row)
			}
			return nil
		})
	}
	return g.Wait()
}
