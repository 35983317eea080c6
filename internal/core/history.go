package core

import (
	"context"
	"fmt"
)

// DefaultHistoryLimit caps History when the caller passes a non-positive limit.
const DefaultHistoryLimit = 50

// History returns committed batches, newest first. An empty importType lists
// every import type.
func (s *Service) History(ctx context.Context, importType string, limit int) ([]ImportBatch, error) {
	if importType != "" {
		def, err := s.definition(importType)
		if err != nil {
			return nil, err
		}
		importType = def.Info.Key
	}
	if limit <= 0 || limit > 500 {
		limit = DefaultHistoryLimit
	}

	batches, err := s.store.ListImportBatches(ctx, importType, limit)
	if err != nil {
		return nil, fmt.Errorf("list import batches: %w", err)
	}
	return batches, nil
}

// SourceFile returns the archived workbook of a committed batch and its
// content type.
func (s *Service) SourceFile(ctx context.Context, batchID string) ([]byte, string, error) {
	batch, err := s.store.GetImportBatch(ctx, batchID)
	if err != nil {
		return nil, "", err
	}
	if s.archive == nil || batch.ArchiveKey == "" {
		return nil, "", fmt.Errorf("%w: %s has no archived source", ErrBatchNotFound, batchID)
	}

	data, contentType, err := s.archive.Get(ctx, batch.ArchiveKey)
	if err != nil {
		return nil, "", fmt.Errorf("read archived source %s: %w", batch.ArchiveKey, err)
	}
	return data, contentType, nil
}
