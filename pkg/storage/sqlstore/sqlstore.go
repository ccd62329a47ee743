// Package sqlstore implements storage.Backend on a database/sql key/value
// table. PostgreSQL, MySQL and SQLite dialects are supported; OpenSQLite
// opens an embedded database through the pure-Go modernc.org/sqlite driver.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/vango-dev/vstore/pkg/storage"
	_ "modernc.org/sqlite"
)

// Store is a SQL-backed storage.Backend. It expects a table of the form:
//
//	CREATE TABLE vstore_items (
//	    key   VARCHAR(255) PRIMARY KEY,
//	    value TEXT NOT NULL,
//	    updated_at TIMESTAMP
//	);
//
// EnsureSchema creates it when missing.
type Store struct {
	db        *sql.DB
	tableName string
	dialect   Dialect
	ownsDB    bool
	closed    atomic.Bool
}

// Dialect selects SQL syntax for query generation.
type Dialect int

const (
	// DialectPostgreSQL uses $1, $2 placeholders.
	DialectPostgreSQL Dialect = iota
	// DialectMySQL uses ? placeholders.
	DialectMySQL
	// DialectSQLite uses ? placeholders.
	DialectSQLite
)

// ParseDialect maps a driver name to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx":
		return DialectPostgreSQL, nil
	case "mysql":
		return DialectMySQL, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return 0, fmt.Errorf("sqlstore: unknown dialect %q", name)
	}
}

// Option configures a Store.
type Option func(*config)

type config struct {
	tableName string
	dialect   Dialect
}

// WithTableName sets the table name. Default: "vstore_items".
func WithTableName(name string) Option {
	return func(c *config) {
		c.tableName = name
	}
}

// WithDialect sets the SQL dialect. Default: DialectPostgreSQL.
func WithDialect(d Dialect) Option {
	return func(c *config) {
		c.dialect = d
	}
}

// New wraps an open database. The caller keeps ownership of db.
func New(db *sql.DB, opts ...Option) *Store {
	cfg := &config{
		tableName: "vstore_items",
		dialect:   DialectPostgreSQL,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Store{
		db:        db,
		tableName: cfg.tableName,
		dialect:   cfg.dialect,
	}
}

// OpenSQLite opens (or creates) a SQLite database at path, ensures the
// schema and returns a Store that closes the database on Close.
// Use ":memory:" for a private in-memory database.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", path, err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	s := New(db, append([]Option{WithDialect(DialectSQLite)}, opts...)...)
	s.ownsDB = true
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the backing table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	var ddl string
	switch s.dialect {
	case DialectPostgreSQL:
		ddl = `
			CREATE TABLE IF NOT EXISTS %s (
				key VARCHAR(255) PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			)`
	case DialectMySQL:
		ddl = `
			CREATE TABLE IF NOT EXISTS %s (
				` + "`key`" + ` VARCHAR(255) PRIMARY KEY,
				value LONGTEXT NOT NULL,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`
	case DialectSQLite:
		ddl = `
			CREATE TABLE IF NOT EXISTS %s (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(ddl, s.tableName)); err != nil {
		return fmt.Errorf("sqlstore: create table %s: %w", s.tableName, err)
	}
	return nil
}

func (s *Store) placeholder(n int) string {
	if s.dialect == DialectPostgreSQL {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *Store) keyColumn() string {
	if s.dialect == DialectMySQL {
		return "`key`"
	}
	return "key"
}

// GetItem implements storage.Backend.
func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, storage.ErrClosed
	}

	query := fmt.Sprintf(`SELECT value FROM %s WHERE %s = %s`,
		s.tableName, s.keyColumn(), s.placeholder(1))

	var v string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetItem implements storage.Backend.
func (s *Store) SetItem(ctx context.Context, key, value string) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}

	var query string
	switch s.dialect {
	case DialectPostgreSQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET
				value = EXCLUDED.value,
				updated_at = NOW()
		`, s.tableName)
	case DialectMySQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (`+"`key`"+`, value, updated_at)
			VALUES (?, ?, NOW())
			ON DUPLICATE KEY UPDATE
				value = VALUES(value),
				updated_at = NOW()
		`, s.tableName)
	case DialectSQLite:
		query = fmt.Sprintf(`
			INSERT OR REPLACE INTO %s (key, value, updated_at)
			VALUES (?, ?, datetime('now'))
		`, s.tableName)
	}

	_, err := s.db.ExecContext(ctx, query, key, value)
	return err
}

// RemoveItem implements storage.Backend.
func (s *Store) RemoveItem(ctx context.Context, key string) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = %s`,
		s.tableName, s.keyColumn(), s.placeholder(1))
	_, err := s.db.ExecContext(ctx, query, key)
	return err
}

// Keys implements storage.Lister.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	if s.closed.Load() {
		return nil, storage.ErrClosed
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s`,
		s.keyColumn(), s.tableName, s.keyColumn())
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, rows.Err()
}

// Close marks the store closed. The database is closed only when it was
// opened by OpenSQLite.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
