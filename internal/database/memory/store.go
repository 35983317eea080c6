// Package memory implements core.Store in process memory.
//
// Transactions run one at a time against a private copy of the state, which
// replaces the shared state on commit. Savepoints are table-length marks,
// since a transaction only ever appends rows. The store is used by tests,
// by the "memory" driver, and as the engine behind the SQLite snapshot store.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/amengaji/Keel/internal/core"
)

// PersistFunc is called with the new state before a transaction is made
// visible. An error rolls the transaction back.
type PersistFunc func(ctx context.Context, snap *Snapshot) error

// Store is an in-memory core.Store.
type Store struct {
	mu      sync.RWMutex // guards state
	writeMu sync.Mutex   // serializes transactions
	state   *Snapshot
	persist PersistFunc
}

var _ core.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{state: newSnapshot()}
}

// Open returns a store seeded from snap that calls persist before every
// commit. snap may be nil.
func Open(snap *Snapshot, persist PersistFunc) *Store {
	if snap == nil {
		snap = newSnapshot()
	}
	if snap.Seq == nil {
		snap.Seq = map[string]int64{}
	}
	return &Store{state: snap.clone(), persist: persist}
}

// Snapshot returns a copy of the committed state.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Counts returns the committed row count per table.
func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.counts()
}

// AddUser inserts a user with an arbitrary role outside of any import.
func (s *Store) AddUser(ctx context.Context, fullName, email, role string) (int64, error) {
	var id int64
	err := s.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		t := tx.(*Tx)
		for _, u := range t.work.Users {
			if strings.EqualFold(u.Email, email) {
				return fmt.Errorf("users email %s: %w", email, core.ErrDuplicate)
			}
		}
		id = t.work.nextID("users")
		t.work.Users = append(t.work.Users, User{
			ID:        id,
			FullName:  fullName,
			Email:     strings.ToLower(email),
			Role:      role,
			CreatedAt: time.Now().UTC(),
		})
		return nil
	})
	return id, err
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// InTx runs fn against a private copy of the state and publishes it if fn
// succeeds and ctx is still live.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	tx := &Tx{work: s.state.clone(), savepoints: map[string]mark{}}
	s.mu.RUnlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if s.persist != nil {
		if err := s.persist(ctx, tx.work); err != nil {
			return fmt.Errorf("persist: %w", err)
		}
	}

	s.mu.Lock()
	s.state = tx.work
	s.mu.Unlock()
	return nil
}

func (s *Store) ListShipTypes(context.Context) ([]core.ShipType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.listShipTypes(), nil
}

func (s *Store) FindUsersByEmail(_ context.Context, emails []string) ([]core.UserRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.findUsersByEmail(emails), nil
}

func (s *Store) FindVesselsByIMO(_ context.Context, imos []string) ([]core.VesselRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.findVesselsByIMO(imos), nil
}

func (s *Store) FindTaskKeys(_ context.Context, titles []string) ([]core.TaskKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.findTaskKeys(titles), nil
}

func (s *Store) FindAssignmentsByCadet(_ context.Context, ids []int64) ([]core.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.findAssignmentsByCadet(ids), nil
}

func (s *Store) ListImportBatches(_ context.Context, importType string, limit int) ([]core.ImportBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.listImportBatches(importType, limit), nil
}

func (s *Store) GetImportBatch(_ context.Context, id string) (core.ImportBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.getImportBatch(id)
}

// Tx is one open transaction. It is not safe for concurrent use.
type Tx struct {
	work       *Snapshot
	savepoints map[string]mark
}

var _ core.Tx = (*Tx)(nil)

func (t *Tx) ListShipTypes(context.Context) ([]core.ShipType, error) {
	return t.work.listShipTypes(), nil
}

func (t *Tx) FindUsersByEmail(_ context.Context, emails []string) ([]core.UserRef, error) {
	return t.work.findUsersByEmail(emails), nil
}

func (t *Tx) FindVesselsByIMO(_ context.Context, imos []string) ([]core.VesselRef, error) {
	return t.work.findVesselsByIMO(imos), nil
}

func (t *Tx) FindTaskKeys(_ context.Context, titles []string) ([]core.TaskKey, error) {
	return t.work.findTaskKeys(titles), nil
}

func (t *Tx) FindAssignmentsByCadet(_ context.Context, ids []int64) ([]core.Assignment, error) {
	return t.work.findAssignmentsByCadet(ids), nil
}

func (t *Tx) ListImportBatches(_ context.Context, importType string, limit int) ([]core.ImportBatch, error) {
	return t.work.listImportBatches(importType, limit), nil
}

func (t *Tx) GetImportBatch(_ context.Context, id string) (core.ImportBatch, error) {
	return t.work.getImportBatch(id)
}

func (t *Tx) EnsureShipType(_ context.Context, name string) (int64, bool, error) {
	id, created := t.work.ensureShipType(name)
	return id, created, nil
}

func (t *Tx) CreateCadet(_ context.Context, c core.NewCadet) (int64, error) {
	return t.work.createCadet(c)
}

func (t *Tx) CreateVessel(_ context.Context, v core.NewVessel) (int64, error) {
	return t.work.createVessel(v)
}

func (t *Tx) CreateTask(_ context.Context, task core.NewTask) (int64, error) {
	return t.work.createTask(task)
}

func (t *Tx) CreateAssignment(_ context.Context, a core.NewAssignment) (int64, error) {
	return t.work.createAssignment(a)
}

func (t *Tx) RecordImportBatch(_ context.Context, b core.ImportBatch) error {
	return t.work.recordImportBatch(b)
}

func (t *Tx) Savepoint(_ context.Context, name string) error {
	t.savepoints[name] = t.work.mark()
	return nil
}

func (t *Tx) RollbackToSavepoint(_ context.Context, name string) error {
	m, ok := t.savepoints[name]
	if !ok {
		return fmt.Errorf("savepoint %s does not exist", name)
	}
	t.work.truncate(m)
	return nil
}

func (t *Tx) ReleaseSavepoint(_ context.Context, name string) error {
	if _, ok := t.savepoints[name]; !ok {
		return fmt.Errorf("savepoint %s does not exist", name)
	}
	delete(t.savepoints, name)
	return nil
}
