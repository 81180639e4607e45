package txstore

import "fmt"

// HashNotFoundError is returned by [Store.LoadTxByHash]
// for a hash that was never saved.
type HashNotFoundError struct {
	Hash []byte
}

func (e HashNotFoundError) Error() string {
	return fmt.Sprintf("no transaction found with hash %X", e.Hash)
}

// DuplicateHashError is returned by [Store.SaveTx]
// when a transaction with the same hash was already saved.
type DuplicateHashError struct {
	Hash [32]byte
}

func (e DuplicateHashError) Error() string {
	return fmt.Sprintf("transaction with hash %X already saved", e.Hash)
}

// InvalidHashLengthError is returned by [Store.LoadTxByHash]
// when the given hash is not 32 bytes.
type InvalidHashLengthError struct {
	Got int
}

func (e InvalidHashLengthError) Error() string {
	return fmt.Sprintf("invalid hash length (want 32, got %d)", e.Got)
}
