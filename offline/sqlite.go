package offline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_stores (
	name       TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS cache_entries (
	store     TEXT NOT NULL REFERENCES cache_stores(name) ON DELETE CASCADE,
	cache_key TEXT NOT NULL,
	payload   BLOB NOT NULL,
	stored_at INTEGER NOT NULL,
	PRIMARY KEY (store, cache_key)
);
CREATE INDEX IF NOT EXISTS cache_entries_age ON cache_entries (store, stored_at);
`

// SQLiteStorage persists cache stores in a single SQLite database so they
// survive restarts of the edge.
type SQLiteStorage struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteStorage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path)
	}
	dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// every new connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStorage) Open(ctx context.Context, name string) (Store, error) {
	if name == "" {
		return nil, fmt.Errorf("store name is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO cache_stores (name, created_at) VALUES (?, ?)`,
		name, time.Now().UTC().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", name, err)
	}
	return &sqliteStore{db: s.db, name: name}, nil
}

func (s *SQLiteStorage) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM cache_stores ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan store name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStorage) Delete(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_stores WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete store %s: %w", name, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

type sqliteStore struct {
	db   *sql.DB
	name string
}

func (s *sqliteStore) Name() string { return s.name }

func (s *sqliteStore) Match(ctx context.Context, key string) (*Entry, error) {
	var (
		payload  []byte
		storedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, stored_at FROM cache_entries WHERE store = ? AND cache_key = ?`,
		s.name, key).Scan(&payload, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", key, err)
	}
	e := &Entry{}
	if err := e.UnmarshalBinary(payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	e.StoredAt = time.Unix(0, storedAt).UTC()
	return e, nil
}

func (s *sqliteStore) Put(ctx context.Context, key string, entry *Entry) error {
	payload, err := entry.MarshalBinary()
	if err != nil {
		return err
	}
	storedAt := entry.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (store, cache_key, payload, stored_at)
		 SELECT ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM cache_stores WHERE name = ?)
		 ON CONFLICT (store, cache_key) DO UPDATE SET
		   payload = excluded.payload,
		   stored_at = excluded.stored_at`,
		s.name, key, payload, storedAt.UnixNano(), s.name)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("put %s: %w", key, ErrStoreNotFound)
	}
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE store = ? AND cache_key = ?`, s.name, key)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *sqliteStore) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cache_entries WHERE store = ?`, s.name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", s.name, err)
	}
	return n, nil
}

func (s *sqliteStore) Evict(ctx context.Context, keep int) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE store = ? AND rowid NOT IN (
		   SELECT rowid FROM cache_entries WHERE store = ?
		   ORDER BY stored_at DESC, rowid DESC LIMIT ?
		 )`, s.name, s.name, keep)
	if err != nil {
		return 0, fmt.Errorf("evict %s: %w", s.name, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
