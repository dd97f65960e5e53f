package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/go-errors/errors"
	_ "modernc.org/sqlite"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteStore keeps every INI file of a game in one table, one row per key.
// A section exists while it has at least one key.
type SQLiteStore struct {
	db    *sql.DB
	table string
}

func OpenSQLite(ctx context.Context, dsn, table string) (*SQLiteStore, error) {
	if table == "" {
		table = "gmlvm_ini"
	}
	if !tableName.MatchString(table) {
		return nil, errors.Errorf("invalid table name %q", table)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	// writes come from one goroutine; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, table: table}
	if _, err := db.ExecContext(ctx, s.sql(`CREATE TABLE IF NOT EXISTS %s (
		file    TEXT NOT NULL,
		section TEXT NOT NULL,
		key     TEXT NOT NULL,
		value   TEXT NOT NULL,
		PRIMARY KEY (file, section, key)
	)`)); err != nil {
		db.Close()
		return nil, errors.Wrap(err, 0)
	}
	return s, nil
}

func (s *SQLiteStore) sql(format string) string {
	return fmt.Sprintf(format, s.table)
}

func (s *SQLiteStore) Read(ctx context.Context, file, section, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		s.sql(`SELECT value FROM %s WHERE file = ? AND section = ? AND key = ?`),
		file, section, key).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, errors.Wrap(err, 0)
	}
	return v, true, nil
}

func (s *SQLiteStore) Write(ctx context.Context, file, section, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		s.sql(`INSERT INTO %s (file, section, key, value) VALUES (?, ?, ?, ?)
		ON CONFLICT (file, section, key) DO UPDATE SET value = excluded.value`),
		file, section, key, value)
	if err != nil {
		return errors.Wrap(err, 0)
	}
	return nil
}

func (s *SQLiteStore) DeleteKey(ctx context.Context, file, section, key string) error {
	_, err := s.db.ExecContext(ctx,
		s.sql(`DELETE FROM %s WHERE file = ? AND section = ? AND key = ?`),
		file, section, key)
	if err != nil {
		return errors.Wrap(err, 0)
	}
	return nil
}

func (s *SQLiteStore) DeleteSection(ctx context.Context, file, section string) error {
	_, err := s.db.ExecContext(ctx,
		s.sql(`DELETE FROM %s WHERE file = ? AND section = ?`),
		file, section)
	if err != nil {
		return errors.Wrap(err, 0)
	}
	return nil
}

func (s *SQLiteStore) SectionExists(ctx context.Context, file, section string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.sql(`SELECT COUNT(*) FROM %s WHERE file = ? AND section = ?`),
		file, section).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, 0)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
