package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/socialhub/feed/internal/storage"
	"github.com/socialhub/feed/internal/storage/storagetest"
)

var errRollback = errors.New("rollback")

func TestStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		sdb, err := OpenInMemory()
		require.NoError(t, err)

		t.Cleanup(func() {
			require.NoError(t, sdb.Close())
		})

		return New(sdb)
	})
}

func TestMigrate_UpToDate(t *testing.T) {
	sdb, err := OpenInMemory()
	require.NoError(t, err)
	defer sdb.Close()

	require.NoError(t, Migrate(sdb))
}

func TestInTx_Rollback(t *testing.T) {
	sdb, err := OpenInMemory()
	require.NoError(t, err)
	defer sdb.Close()

	ctx := context.Background()
	s := New(sdb).(db)

	err = s.InTx(ctx, func(tx db) error {
		require.NoError(t, tx.createPost(ctx, storagetest.NewPost("1")))
		require.ErrorIs(t, tx.InTx(ctx, func(db) error { return nil }), errBeginCalledWithinTx)

		_, err := tx.getPost(ctx, "1")
		require.NoError(t, err)

		return errRollback
	})
	require.True(t, errors.Is(err, errRollback))

	_, err = s.GetPost(ctx, "1")
	require.True(t, errors.Is(err, storage.ErrNotFound))
}
