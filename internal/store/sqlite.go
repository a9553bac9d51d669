// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides per-user document persistence with versioned schema migration

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// schemaVersion is the current schema. Version 2 is the multi-user
// layout; the unversioned legacy layout had no user column.
const schemaVersion = 2

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite store at the given path.
// Parent directories are created if needed, and the schema is checked
// and migrated before the store is returned.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	// Connection pragmas go in the DSN so every pooled connection gets
	// them before its first statement: busy_timeout makes concurrent
	// openers wait on the write lock instead of failing fast, and
	// _txlock=immediate takes the write lock at BEGIN so transactions
	// serialize up front.
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL is a persistent database property, set once.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// ensureSchema checks the schema version marker and upgrades the layout
// deterministically. It is idempotent and safe to run on every startup:
// the whole detect-then-act sequence runs in one immediate transaction
// (_txlock=immediate in the DSN), so concurrent processes racing at
// startup serialize and the loser observes the marker and does nothing.
func (s *SQLiteStore) ensureSchema() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("creating version table: %w", err)
	}

	var version int
	err = tx.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if err := s.bootstrapSchema(tx); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("reading schema version: %w", err)
	case version == schemaVersion:
		// Already current.
	default:
		return fmt.Errorf("unsupported schema version %d (want %d)", version, schemaVersion)
	}

	return tx.Commit()
}

// bootstrapSchema brings an unversioned database to the current schema.
// Three shapes exist in the wild: a fresh database, a legacy single-user
// user_data table (key PRIMARY KEY, no user column), and a multi-user
// table created before the version marker was introduced.
func (s *SQLiteStore) bootstrapSchema(tx *sql.Tx) error {
	var name string
	err := tx.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'user_data'`,
	).Scan(&name)

	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.Exec(createUserDataSQL); err != nil {
			return fmt.Errorf("creating user_data table: %w", err)
		}
		s.logger.Info("created fresh schema", "version", schemaVersion)
	case err != nil:
		return fmt.Errorf("inspecting schema: %w", err)
	default:
		hasUser, err := tableHasColumn(tx, "user_data", "user")
		if err != nil {
			return err
		}
		if !hasUser {
			if err := s.migrateLegacyTable(tx); err != nil {
				return err
			}
		}
		// Multi-user table already present: only the marker is missing.
	}

	if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return nil
}

const createUserDataSQL = `
	CREATE TABLE user_data (
		user       TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user, key)
	)`

// migrateLegacyTable rebuilds the single-user layout as the multi-user
// one, preserving every row under the sentinel user. Rows whose key is
// outside the document set are carried over too; reads filter them.
func (s *SQLiteStore) migrateLegacyTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`ALTER TABLE user_data RENAME TO user_data_legacy`); err != nil {
		return fmt.Errorf("renaming legacy table: %w", err)
	}
	if _, err := tx.Exec(createUserDataSQL); err != nil {
		return fmt.Errorf("creating user_data table: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT INTO user_data (user, key, value, updated_at)
		 SELECT ?, key, value, ? FROM user_data_legacy`,
		SentinelUser, now,
	); err != nil {
		return fmt.Errorf("copying legacy rows: %w", err)
	}
	if _, err := tx.Exec(`DROP TABLE user_data_legacy`); err != nil {
		return fmt.Errorf("dropping legacy table: %w", err)
	}
	s.logger.Info("migrated legacy single-user data", "user", SentinelUser)
	return nil
}

// tableHasColumn reports whether the named table has the named column.
func tableHasColumn(tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false, fmt.Errorf("reading table info: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, fmt.Errorf("scanning table info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// Get returns every document key for the user with defaults filled in.
func (s *SQLiteStore) Get(ctx context.Context, user string) (map[string]json.RawMessage, error) {
	docs := make(map[string]json.RawMessage, len(DocumentKeys))
	for _, key := range DocumentKeys {
		docs[key] = DefaultValue(key)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM user_data WHERE user = ?`, user)
	if err != nil {
		return nil, fmt.Errorf("querying user data: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning user data: %w", err)
		}
		if IsDocumentKey(key) {
			docs[key] = json.RawMessage(value)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading user data: %w", err)
	}

	return docs, nil
}

// Put upserts each accepted document in a single transaction.
func (s *SQLiteStore) Put(ctx context.Context, user string, docs map[string]json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for key, value := range docs {
		if !IsDocumentKey(key) {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_data (user, key, value, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (user, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			user, key, string(value), now,
		); err != nil {
			return fmt.Errorf("upserting %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
