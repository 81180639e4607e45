// Package txstoretest contains the compliance tests
// that every [txstore.Store] implementation must pass.
package txstoretest

import (
	"context"
	"crypto/sha256"
	"testing"

	"github.com/gordian-engine/gibctest/txstore"
	"github.com/stretchr/testify/require"
)

type StoreFactory func(cleanup func(func())) (txstore.Store, error)

// NewIndexedTx returns a transaction at the given height
// whose hash is derived from body.
func NewIndexedTx(height uint64, body string, recipients ...string) txstore.IndexedTx {
	return txstore.IndexedTx{
		Hash:       sha256.Sum256([]byte(body)),
		Height:     height,
		RawLog:     "log for " + body,
		Recipients: recipients,
		Body:       []byte(body),
	}
}

func TestStoreCompliance(t *testing.T, f StoreFactory) {
	t.Run("round trip by hash", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s, err := f(t.Cleanup)
		require.NoError(t, err)

		itx := NewIndexedTx(5, `{"body":1}`, "addr_a", "addr_b")
		itx.Code = 3
		require.NoError(t, s.SaveTx(ctx, itx))

		got, err := s.LoadTxByHash(ctx, itx.Hash[:])
		require.NoError(t, err)
		require.Equal(t, itx, got)
	})

	t.Run("unknown hash", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s, err := f(t.Cleanup)
		require.NoError(t, err)

		h := sha256.Sum256([]byte("never saved"))
		_, err = s.LoadTxByHash(ctx, h[:])

		var nf txstore.HashNotFoundError
		require.ErrorAs(t, err, &nf)
		require.Equal(t, h[:], nf.Hash)
	})

	t.Run("invalid hash length", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s, err := f(t.Cleanup)
		require.NoError(t, err)

		_, err = s.LoadTxByHash(ctx, []byte("short"))
		require.ErrorIs(t, err, txstore.InvalidHashLengthError{Got: 5})
	})

	t.Run("duplicate hash rejected", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s, err := f(t.Cleanup)
		require.NoError(t, err)

		itx := NewIndexedTx(1, "dup", "addr_a")
		require.NoError(t, s.SaveTx(ctx, itx))

		other := itx
		other.Height = 2
		other.Recipients = []string{"addr_c"}
		err = s.SaveTx(ctx, other)
		require.ErrorIs(t, err, txstore.DuplicateHashError{Hash: itx.Hash})

		// The rejected save left no trace.
		got, err := s.LoadTxsByRecipient(ctx, "addr_c")
		require.NoError(t, err)
		require.Empty(t, got)

		orig, err := s.LoadTxByHash(ctx, itx.Hash[:])
		require.NoError(t, err)
		require.Equal(t, uint64(1), orig.Height)
	})

	t.Run("by recipient", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s, err := f(t.Cleanup)
		require.NoError(t, err)

		// Saved out of height order.
		tx3 := NewIndexedTx(3, "third", "addr_a")
		tx1a := NewIndexedTx(1, "first_a", "addr_a", "addr_b")
		tx1b := NewIndexedTx(1, "first_b", "addr_b", "addr_a", "addr_a")
		tx2 := NewIndexedTx(2, "second", "addr_b")

		for _, itx := range []txstore.IndexedTx{tx3, tx1a, tx1b, tx2} {
			require.NoError(t, s.SaveTx(ctx, itx))
		}

		t.Run("ordered by height then save order", func(t *testing.T) {
			got, err := s.LoadTxsByRecipient(ctx, "addr_a")
			require.NoError(t, err)
			require.Equal(t, []txstore.IndexedTx{tx1a, tx1b, tx3}, got)
		})

		t.Run("other recipient", func(t *testing.T) {
			got, err := s.LoadTxsByRecipient(ctx, "addr_b")
			require.NoError(t, err)
			require.Equal(t, []txstore.IndexedTx{tx1a, tx1b, tx2}, got)
		})

		t.Run("unknown recipient is empty, not nil", func(t *testing.T) {
			got, err := s.LoadTxsByRecipient(ctx, "addr_z")
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Empty(t, got)
		})
	})

	t.Run("saved transaction is not aliased", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s, err := f(t.Cleanup)
		require.NoError(t, err)

		itx := NewIndexedTx(1, "alias", "addr_a")
		require.NoError(t, s.SaveTx(ctx, itx))

		itx.Recipients[0] = "mutated"
		itx.Body[0] = 'X'

		got, err := s.LoadTxByHash(ctx, itx.Hash[:])
		require.NoError(t, err)
		require.Equal(t, []string{"addr_a"}, got.Recipients)
		require.Equal(t, []byte("alias"), got.Body)
	})
}
