package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amengaji/Keel/internal/core"
)

func TestStore_StateSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "keel.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))

	err = s.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		st, _, err := tx.EnsureShipType(ctx, "LNG Carrier")
		if err != nil {
			return err
		}
		if _, err := tx.CreateVessel(ctx, core.NewVessel{IMO: "9321483", Name: "Polar Spirit", ShipTypeID: st}); err != nil {
			return err
		}
		return tx.RecordImportBatch(ctx, core.ImportBatch{ID: "batch-1", ImportType: "vessels", Created: 1, CreatedAt: time.Now().UTC()})
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	vessels, err := reopened.FindVesselsByIMO(ctx, []string{"9321483"})
	require.NoError(t, err)
	require.Len(t, vessels, 1)
	assert.Equal(t, "Polar Spirit", vessels[0].Name)

	batch, err := reopened.GetImportBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Created)

	err = reopened.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		id, created, err := tx.EnsureShipType(ctx, "Tanker")
		assert.True(t, created)
		assert.Equal(t, int64(2), id, "sequences are restored")
		return err
	})
	require.NoError(t, err)
}

func TestStore_RejectsCorruptState(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "keel.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.DB().Exec(`INSERT OR REPLACE INTO state(bucket,payload) VALUES(?,?)`, "users", []byte("not-json"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(ctx, path)
	require.ErrorContains(t, err, "decode users")
}
