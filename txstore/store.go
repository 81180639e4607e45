package txstore

import (
	"context"
)

// Store indexes the transactions executed by a fake chain,
// so that they can be looked up by hash or by transfer recipient.
type Store interface {
	// SaveTx indexes tx.
	// Saving a second transaction with the same hash
	// returns a [DuplicateHashError].
	SaveTx(ctx context.Context, tx IndexedTx) error

	// LoadTxByHash returns the transaction with the given 32-byte hash,
	// or a [HashNotFoundError].
	LoadTxByHash(ctx context.Context, hash []byte) (IndexedTx, error)

	// LoadTxsByRecipient returns every transaction listing recipient
	// in its Recipients, ordered by ascending height,
	// and by save order within a height.
	// It returns an empty slice, not an error, when there are none.
	LoadTxsByRecipient(ctx context.Context, recipient string) ([]IndexedTx, error)
}

// IndexedTx is a transaction as stored in a [Store].
type IndexedTx struct {
	Hash   [32]byte
	Height uint64

	// Result code; zero means success.
	Code   uint32
	RawLog string

	// Addresses that received a transfer in this transaction.
	Recipients []string

	// JSON encoding of the transaction, as broadcast.
	Body []byte
}
