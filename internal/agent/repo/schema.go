package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

const currentSchemaVersion = 1

// migrate brings the conversation tables up to currentSchemaVersion inside
// one transaction.
func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return err
	}

	version, err := readSchemaVersion(ctx, tx)
	if err != nil {
		return err
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("db schema version %d is newer than runtime version %d", version, currentSchemaVersion)
	}

	for version < currentSchemaVersion {
		next, err := applyNextMigration(ctx, tx, version)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO schema_meta (key, value) VALUES ('schema_version', ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`, strconv.Itoa(next)); err != nil {
			return err
		}
		version = next
	}

	return tx.Commit()
}

func readSchemaVersion(ctx context.Context, tx *sql.Tx) (int, error) {
	var text string
	err := tx.QueryRowContext(ctx, `SELECT value FROM schema_meta WHERE key = 'schema_version'`).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	version, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("parse schema version %q: %w", text, err)
	}
	if version < 0 {
		return 0, fmt.Errorf("invalid schema version %d", version)
	}
	return version, nil
}

func applyNextMigration(ctx context.Context, tx *sql.Tx, version int) (int, error) {
	switch version {
	case 0:
		if err := createConversationTables(ctx, tx); err != nil {
			return version, fmt.Errorf("migrate schema 0 -> 1: %w", err)
		}
		return 1, nil
	default:
		return version, fmt.Errorf("unsupported schema migration source version %d", version)
	}
}

func createConversationTables(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{`
CREATE TABLE IF NOT EXISTS sessions (
	session_key TEXT PRIMARY KEY,
	turn_count INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);`, `
CREATE TABLE IF NOT EXISTS turns (
	session_key TEXT NOT NULL REFERENCES sessions(session_key),
	seq INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	UNIQUE (session_key, seq)
);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
