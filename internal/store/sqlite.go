package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const targetKey = "target"

// SQLite stores the target in a key/value table of an SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed, creates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS settings (key TEXT PRIMARY KEY, value REAL NOT NULL)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating settings table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context) (float64, bool, error) {
	var target float64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, targetKey).Scan(&target)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("loading target: %w", err)
	}
	return target, true, nil
}

func (s *SQLite) Save(ctx context.Context, target float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		targetKey, target,
	)
	if err != nil {
		return fmt.Errorf("saving target: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
