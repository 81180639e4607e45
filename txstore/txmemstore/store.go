package txmemstore

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/gordian-engine/gibctest/internal/glog"
	"github.com/gordian-engine/gibctest/txstore"
)

// Store is an in-memory [txstore.Store].
type Store struct {
	log *slog.Logger

	mu        sync.Mutex
	txsByHash map[[32]byte]txstore.IndexedTx

	// Hashes per recipient, in save order.
	byRecipient map[string][][32]byte
}

var _ txstore.Store = (*Store)(nil)

func NewStore(log *slog.Logger) *Store {
	return &Store{
		log: log,

		txsByHash:   make(map[[32]byte]txstore.IndexedTx),
		byRecipient: make(map[string][][32]byte),
	}
}

func (s *Store) SaveTx(_ context.Context, tx txstore.IndexedTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.txsByHash[tx.Hash]; ok {
		return txstore.DuplicateHashError{Hash: tx.Hash}
	}

	tx = cloneTx(tx)
	s.txsByHash[tx.Hash] = tx

	for _, r := range slices.Compact(slices.Sorted(slices.Values(tx.Recipients))) {
		s.byRecipient[r] = append(s.byRecipient[r], tx.Hash)
	}

	s.log.Debug("Saved transaction", "hash", glog.Hex(tx.Hash[:]), "height", tx.Height)
	return nil
}

func (s *Store) LoadTxByHash(_ context.Context, hash []byte) (txstore.IndexedTx, error) {
	if len(hash) != 32 {
		return txstore.IndexedTx{}, txstore.InvalidHashLengthError{Got: len(hash)}
	}

	var ha [32]byte
	_ = append(ha[:0], hash...)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txsByHash[ha]
	if !ok {
		return txstore.IndexedTx{}, txstore.HashNotFoundError{Hash: slices.Clone(hash)}
	}

	return cloneTx(tx), nil
}

func (s *Store) LoadTxsByRecipient(_ context.Context, recipient string) ([]txstore.IndexedTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hashes := s.byRecipient[recipient]
	out := make([]txstore.IndexedTx, 0, len(hashes))
	for _, h := range hashes {
		out = append(out, cloneTx(s.txsByHash[h]))
	}

	// Save order is not necessarily height order.
	slices.SortStableFunc(out, func(a, b txstore.IndexedTx) int {
		return cmp.Compare(a.Height, b.Height)
	})

	return out, nil
}

func cloneTx(tx txstore.IndexedTx) txstore.IndexedTx {
	tx.Recipients = slices.Clone(tx.Recipients)
	tx.Body = slices.Clone(tx.Body)
	return tx
}
