package txsqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/gordian-engine/gibctest/txstore"
)

// Store is a sqlite-backed [txstore.Store].
type Store struct {
	// The string "purego" or "cgo" depending on build tags.
	BuildType string

	// Separate pools so that readers never queue behind the single writer connection.
	ro, rw *sql.DB
}

var _ txstore.Store = (*Store)(nil)

// NewOnDiskStore opens or creates the database at dbPath.
func NewOnDiskStore(ctx context.Context, dbPath string) (*Store, error) {
	dbPath = filepath.Clean(dbPath)
	if _, err := os.Stat(dbPath); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat path %q: %w", dbPath, err)
		}

		// The startup pragmas fail without an existing file.
		// O_EXCL so that an existing database is never truncated.
		f, err := os.OpenFile(dbPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to create empty database file: %w", err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("failed to close new empty database file: %w", err)
		}
	}

	uri := "file:" + dbPath + "?mode=rw"

	rw, err := sql.Open(sqliteDriverType, uri)
	if err != nil {
		return nil, fmt.Errorf("error opening read-write database: %w", err)
	}

	// One writer at a time; other writers block on the pool
	// instead of failing with "database is locked".
	rw.SetMaxOpenConns(1)

	if _, err := rw.ExecContext(ctx, `PRAGMA journal_mode = WAL`); err != nil {
		_ = rw.Close()
		return nil, fmt.Errorf("failed to set journal_mode=WAL: %w", err)
	}

	return open(ctx, rw, strings.TrimSuffix(uri, "?mode=rw")+"?mode=ro")
}

var inMemNameCounter uint32

// NewInMemStore returns a store backed by a private in-memory database.
func NewInMemStore(ctx context.Context) (*Store, error) {
	dbName := fmt.Sprintf("txdb%d", atomic.AddUint32(&inMemNameCounter, 1))
	uri := "file:" + dbName +
		// The unique name lets both pools share one in-memory database.
		"?mode=memory" +
		"&cache=shared"

	rw, err := sql.Open(sqliteDriverType, uri+"&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("error opening read-write database: %w", err)
	}
	rw.SetMaxOpenConns(1)

	return open(ctx, rw, uri)
}

func open(ctx context.Context, rw *sql.DB, roURI string) (*Store, error) {
	if _, err := rw.ExecContext(ctx, `PRAGMA foreign_keys = ON;`); err != nil {
		_ = rw.Close()
		return nil, fmt.Errorf("failed to set foreign keys on: %w", err)
	}

	if err := migrate(ctx, rw); err != nil {
		_ = rw.Close()
		return nil, err
	}

	ro, err := sql.Open(sqliteDriverType, roURI)
	if err != nil {
		_ = rw.Close()
		return nil, fmt.Errorf("error opening read-only database: %w", err)
	}

	return &Store{
		BuildType: sqliteBuildType,

		rw: rw,
		ro: ro,
	}, nil
}

func (s *Store) Close() error {
	errRO := s.ro.Close()
	if errRO != nil {
		errRO = fmt.Errorf("error closing read-only database: %w", errRO)
	}
	errRW := s.rw.Close()
	if errRW != nil {
		errRW = fmt.Errorf("error closing read-write database: %w", errRW)
	}

	return errors.Join(errRO, errRW)
}

func (s *Store) SaveTx(ctx context.Context, itx txstore.IndexedTx) error {
	tx, err := s.rw.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO txs(hash, height, code, raw_log, body) VALUES (?, ?, ?, ?, ?)`,
		itx.Hash[:], itx.Height, itx.Code, itx.RawLog, itx.Body,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return txstore.DuplicateHashError{Hash: itx.Hash}
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	txID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted transaction ID: %w", err)
	}

	for i, r := range itx.Recipients {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO tx_recipients(tx_id, idx, recipient) VALUES (?, ?, ?)`,
			txID, i, r,
		); err != nil {
			return fmt.Errorf("failed to insert recipient %d (%s): %w", i, r, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *Store) LoadTxByHash(ctx context.Context, hash []byte) (txstore.IndexedTx, error) {
	if len(hash) != 32 {
		return txstore.IndexedTx{}, txstore.InvalidHashLengthError{Got: len(hash)}
	}

	var (
		id   int64
		itx  txstore.IndexedTx
		body []byte
	)
	err := s.ro.QueryRowContext(
		ctx,
		`SELECT id, height, code, raw_log, body FROM txs WHERE hash = ?`,
		hash,
	).Scan(&id, &itx.Height, &itx.Code, &itx.RawLog, &body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return txstore.IndexedTx{}, txstore.HashNotFoundError{Hash: slices.Clone(hash)}
		}
		return txstore.IndexedTx{}, fmt.Errorf("failed to load transaction %X: %w", hash, err)
	}

	_ = append(itx.Hash[:0], hash...)
	itx.Body = body

	itx.Recipients, err = s.loadRecipients(ctx, id)
	if err != nil {
		return txstore.IndexedTx{}, err
	}

	return itx, nil
}

func (s *Store) LoadTxsByRecipient(ctx context.Context, recipient string) ([]txstore.IndexedTx, error) {
	rows, err := s.ro.QueryContext(
		ctx,
		`SELECT id, hash, height, code, raw_log, body FROM txs
WHERE id IN (SELECT tx_id FROM tx_recipients WHERE recipient = ?)
ORDER BY height ASC, id ASC`,
		recipient,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for recipient %s: %w", recipient, err)
	}
	defer rows.Close()

	var ids []int64
	out := []txstore.IndexedTx{}
	for rows.Next() {
		var (
			id   int64
			hash []byte
			itx  txstore.IndexedTx
		)
		if err := rows.Scan(&id, &hash, &itx.Height, &itx.Code, &itx.RawLog, &itx.Body); err != nil {
			return nil, fmt.Errorf("failed to scan transaction for recipient %s: %w", recipient, err)
		}
		_ = append(itx.Hash[:0], hash...)

		ids = append(ids, id)
		out = append(out, itx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions for recipient %s: %w", recipient, err)
	}
	_ = rows.Close()

	for i, id := range ids {
		out[i].Recipients, err = s.loadRecipients(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (s *Store) loadRecipients(ctx context.Context, txID int64) ([]string, error) {
	rows, err := s.ro.QueryContext(
		ctx,
		`SELECT recipient FROM tx_recipients WHERE tx_id = ? ORDER BY idx ASC`,
		txID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipients: %w", err)
	}
	defer rows.Close()

	var rs []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		rs = append(rs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipients: %w", err)
	}

	return rs, nil
}
