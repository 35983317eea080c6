package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amengaji/Keel/internal/core"
)

func TestInTx_CommitPublishesState(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		id, created, err := tx.EnsureShipType(ctx, "Bulk Carrier")
		require.NoError(t, err)
		assert.True(t, created)

		again, created, err := tx.EnsureShipType(ctx, "bulk carrier")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, id, again)

		_, err = tx.CreateVessel(ctx, core.NewVessel{IMO: "9074729", Name: "Aurora", ShipTypeID: id})
		return err
	})
	require.NoError(t, err)

	c := s.Counts()
	assert.Equal(t, 1, c.ShipTypes)
	assert.Equal(t, 1, c.Vessels)
}

func TestInTx_ErrorDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		_, err := tx.CreateCadet(ctx, core.NewCadet{FullName: "A", Email: "a@example.com"})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, Counts{}, s.Counts())
}

func TestInTx_CancelledContextDiscardsWrites(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	err := s.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		_, err := tx.CreateCadet(ctx, core.NewCadet{FullName: "A", Email: "a@example.com"})
		cancel()
		return err
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.Counts().Users)
}

func TestTx_UniqueViolationsWrapErrDuplicate(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		st, _, _ := tx.EnsureShipType(ctx, "Tanker")

		_, err := tx.CreateCadet(ctx, core.NewCadet{FullName: "A", Email: "A@Example.com"})
		require.NoError(t, err)
		_, err = tx.CreateCadet(ctx, core.NewCadet{FullName: "B", Email: "a@example.com"})
		assert.ErrorIs(t, err, core.ErrDuplicate)

		_, err = tx.CreateVessel(ctx, core.NewVessel{IMO: "1234567", Name: "One", ShipTypeID: st})
		require.NoError(t, err)
		_, err = tx.CreateVessel(ctx, core.NewVessel{IMO: "1234567", Name: "Two", ShipTypeID: st})
		assert.ErrorIs(t, err, core.ErrDuplicate)

		_, err = tx.CreateTask(ctx, core.NewTask{PartNumber: 1, Title: "Steering"})
		require.NoError(t, err)
		_, err = tx.CreateTask(ctx, core.NewTask{PartNumber: 1, Title: "STEERING"})
		assert.ErrorIs(t, err, core.ErrDuplicate)
		_, err = tx.CreateTask(ctx, core.NewTask{PartNumber: 1, Title: "Steering", ShipTypeID: &st})
		assert.NoError(t, err, "same title for a specific ship type is a different key")
		return nil
	})
	require.NoError(t, err)
}

func TestTx_ForeignKeys(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		_, err := tx.CreateVessel(ctx, core.NewVessel{IMO: "1234567", Name: "Ghost", ShipTypeID: 42})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, core.ErrDuplicate)

		_, err = tx.CreateAssignment(ctx, core.NewAssignment{CadetID: 1, VesselID: 1, DateJoined: time.Now()})
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}

func TestTx_RollbackToSavepoint(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		_, err := tx.CreateCadet(ctx, core.NewCadet{FullName: "Kept", Email: "kept@example.com"})
		require.NoError(t, err)

		require.NoError(t, tx.Savepoint(ctx, "sp_0"))
		_, err = tx.CreateCadet(ctx, core.NewCadet{FullName: "Dropped", Email: "dropped@example.com"})
		require.NoError(t, err)
		require.NoError(t, tx.RollbackToSavepoint(ctx, "sp_0"))
		require.NoError(t, tx.ReleaseSavepoint(ctx, "sp_0"))

		id, err := tx.CreateCadet(ctx, core.NewCadet{FullName: "Next", Email: "next@example.com"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), id, "sequence rewinds with the savepoint")

		assert.Error(t, tx.ReleaseSavepoint(ctx, "sp_0"))
		return nil
	})
	require.NoError(t, err)

	users, err := s.FindUsersByEmail(ctx, []string{"kept@example.com", "dropped@example.com", "next@example.com"})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Len(t, s.Snapshot().Profiles, 2)
}

func TestReadsIgnoreOpenTransaction(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		_, err := tx.CreateCadet(ctx, core.NewCadet{FullName: "A", Email: "a@example.com"})
		require.NoError(t, err)

		outside, err := s.FindUsersByEmail(ctx, []string{"a@example.com"})
		require.NoError(t, err)
		assert.Empty(t, outside)

		inside, err := tx.FindUsersByEmail(ctx, []string{"A@EXAMPLE.COM"})
		require.NoError(t, err)
		assert.Len(t, inside, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestImportBatches(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, typ := range []string{"cadets", "vessels", "cadets"} {
		b := core.ImportBatch{ID: string(rune('a' + i)), ImportType: typ, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
			return tx.RecordImportBatch(ctx, b)
		}))
	}

	all, err := s.ListImportBatches(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)

	cadets, err := s.ListImportBatches(ctx, "cadets", 1)
	require.NoError(t, err)
	require.Len(t, cadets, 1)
	assert.Equal(t, "c", cadets[0].ID)

	_, err = s.GetImportBatch(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrBatchNotFound)
}

func TestOpen_PersistFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	var persisted int
	s := Open(nil, func(_ context.Context, snap *Snapshot) error {
		persisted++
		if len(snap.Users) > 1 {
			return errors.New("disk full")
		}
		return nil
	})

	_, err := s.AddUser(ctx, "Admin", "admin@example.com", core.RoleAdmin)
	require.NoError(t, err)
	_, err = s.AddUser(ctx, "Second", "second@example.com", core.RoleAdmin)
	require.Error(t, err)

	assert.Equal(t, 2, persisted)
	assert.Equal(t, 1, s.Counts().Users)
}
