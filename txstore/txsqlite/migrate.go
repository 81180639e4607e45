package txsqlite

import (
	"context"
	"database/sql"
	"fmt"
)

func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(
		ctx,
		`CREATE TABLE IF NOT EXISTS migrations(
  id INTEGER PRIMARY KEY CHECK (id = 0),
  version INTEGER
);`,
	); err != nil {
		return fmt.Errorf("error getting initial migrations table: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO migrations(id, version) VALUES (0, 0)`,
	); err != nil {
		return fmt.Errorf("error setting initial migration version: %w", err)
	}

	var version int
	if err := tx.QueryRowContext(
		ctx, `SELECT version FROM migrations WHERE id=0;`,
	).Scan(&version); err != nil {
		return fmt.Errorf("failed to scan migration version: %w", err)
	}

	switch version {
	case 0:
		if err := migrateInitial(ctx, tx); err != nil {
			return fmt.Errorf("initial migration: %w", err)
		}
		if _, err := tx.ExecContext(
			ctx, `UPDATE migrations SET version = 1 WHERE id=0`,
		); err != nil {
			return fmt.Errorf("failed to set migration version: %w", err)
		}
	case 1:
		// Up to date.
		return tx.Commit()
	default:
		return fmt.Errorf("unknown migration version %d", version)
	}

	// https://sqlite.org/pragma.html#pragma_optimize:
	// run PRAGMA optimize after a schema change.
	if _, err := tx.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("failed to run PRAGMA optimize after migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}

	return nil
}

func migrateInitial(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(
		ctx,
		`
CREATE TABLE txs(
  id INTEGER PRIMARY KEY NOT NULL,
  hash BLOB NOT NULL UNIQUE CHECK (length(hash) = 32),
  height INTEGER NOT NULL,
  code INTEGER NOT NULL,
  raw_log TEXT NOT NULL,
  body BLOB
);`+
			// Recipients keep their order within a transaction through idx.
			`
CREATE TABLE tx_recipients(
  tx_id INTEGER NOT NULL,
  idx INTEGER NOT NULL,
  recipient TEXT NOT NULL,
  FOREIGN KEY(tx_id) REFERENCES txs(id),
  UNIQUE (tx_id, idx)
);
CREATE INDEX tx_recipients_by_recipient ON tx_recipients(recipient);
`,
	)
	return err
}
