package txsqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gordian-engine/gibctest/txstore"
	"github.com/gordian-engine/gibctest/txstore/txsqlite"
	"github.com/gordian-engine/gibctest/txstore/txstoretest"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	s, err := txsqlite.NewInMemStore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)

	t.Logf("Tests are for build type %s", s.BuildType)

	require.NoError(t, s.Close())
}

func TestStoreCompliance_inMem(t *testing.T) {
	t.Parallel()

	txstoretest.TestStoreCompliance(t, func(cleanup func(func())) (txstore.Store, error) {
		s, err := txsqlite.NewInMemStore(context.Background())
		if err != nil {
			return nil, err
		}
		cleanup(func() {
			require.NoError(t, s.Close())
		})
		return s, nil
	})
}

func TestStoreCompliance_onDisk(t *testing.T) {
	t.Parallel()

	txstoretest.TestStoreCompliance(t, func(cleanup func(func())) (txstore.Store, error) {
		s, err := txsqlite.NewOnDiskStore(context.Background(), filepath.Join(t.TempDir(), "tx.sqlite"))
		if err != nil {
			return nil, err
		}
		cleanup(func() {
			require.NoError(t, s.Close())
		})
		return s, nil
	})
}

func TestOnDiskStore_reopen(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "tx.sqlite")

	s, err := txsqlite.NewOnDiskStore(ctx, path)
	require.NoError(t, err)

	itx := txstoretest.NewIndexedTx(7, "persisted", "addr_a")
	require.NoError(t, s.SaveTx(ctx, itx))
	require.NoError(t, s.Close())

	s, err = txsqlite.NewOnDiskStore(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.LoadTxByHash(ctx, itx.Hash[:])
	require.NoError(t, err)
	require.Equal(t, itx, got)
}
