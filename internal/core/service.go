package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amengaji/Keel/internal/config"
)

// Archive retains committed source workbooks.
type Archive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
}

// Service provides the core business logic for spreadsheet imports.
type Service struct {
	store    Store
	archive  Archive
	limiter  *ImportLimiter
	policies map[string]GatePolicy

	commitTimeout time.Duration
	workers       int
}

// NewService creates a new Service instance. archive may be nil.
func NewService(store Store, archive Archive, cfg *config.Config) (*Service, error) {
	overrides, err := ParsePolicyOverrides(cfg.Import.GatePolicies)
	if err != nil {
		return nil, fmt.Errorf("gate policies: %w", err)
	}
	for key := range overrides {
		if _, ok := Get(key); !ok {
			return nil, fmt.Errorf("gate policies: %w: %s", ErrUnknownImport, key)
		}
	}

	return &Service{
		store:         store,
		archive:       archive,
		limiter:       NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		policies:      overrides,
		commitTimeout: cfg.Import.CommitTimeout,
		workers:       max(1, cfg.Import.Workers),
	}, nil
}

// Imports returns information about all registered import types, with the
// effective gate policy applied.
func (s *Service) Imports() []ImportInfo {
	defs := All()
	infos := make([]ImportInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
		infos[i].Policy = s.policyFor(def)
	}
	return infos
}

// Limiter returns the import concurrency limiter.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// WaitForImports blocks until all in-flight previews and commits finish or
// ctx is cancelled. Used during graceful shutdown.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) definition(importType string) (ImportDefinition, error) {
	def, ok := Get(strings.ToLower(strings.TrimSpace(importType)))
	if !ok {
		return ImportDefinition{}, fmt.Errorf("%w: %s", ErrUnknownImport, importType)
	}
	return def, nil
}

func (s *Service) policyFor(def ImportDefinition) GatePolicy {
	if p, ok := s.policies[def.Info.Key]; ok {
		return p
	}
	return def.Info.Policy
}
