package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	sqliteBusyTimeoutMs = 5000
	sqliteTimeout       = 5 * time.Second

	createCellsTable = `CREATE TABLE IF NOT EXISTS cells (
		addr  INTEGER PRIMARY KEY,
		value INTEGER NOT NULL
	)`

	upsertCell = `INSERT INTO cells (addr, value) VALUES (?, ?)
		ON CONFLICT(addr) DO UPDATE SET value = excluded.value`
)

// SQLite is a Medium backed by a single-table SQLite database, one row
// per written address. Reads are served from a cache loaded at open;
// staged writes are flushed in one transaction on Commit.
type SQLite struct {
	db      *sql.DB
	path    string
	cache   [MediumSize]byte
	pending map[int]byte
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path required", ErrMedium)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("%w: create directory: %w", ErrMedium, err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=FULL",
		path, sqliteBusyTimeoutMs)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrMedium, path, err)
	}
	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	if _, err := db.ExecContext(ctx, createCellsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create table: %w", ErrMedium, err)
	}

	s := &SQLite{db: db, path: path, pending: make(map[int]byte)}
	for i := range s.cache {
		s.cache[i] = erased
	}
	if err := s.load(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, "SELECT addr, value FROM cells")
	if err != nil {
		return fmt.Errorf("%w: query cells: %w", ErrMedium, err)
	}
	defer rows.Close()

	for rows.Next() {
		var addr, value int
		if err := rows.Scan(&addr, &value); err != nil {
			return fmt.Errorf("%w: scan cell: %w", ErrMedium, err)
		}
		if addr < 0 || addr >= MediumSize {
			continue
		}
		s.cache[addr] = byte(value)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterate cells: %w", ErrMedium, err)
	}
	return nil
}

// Get implements Medium.Get.
func (s *SQLite) Get(offset int) (byte, error) {
	if err := checkOffset(offset); err != nil {
		return 0, err
	}
	return s.cache[offset], nil
}

// Put implements Medium.Put.
func (s *SQLite) Put(offset int, v byte) error {
	if err := checkOffset(offset); err != nil {
		return err
	}
	s.cache[offset] = v
	s.pending[offset] = v
	return nil
}

// Commit implements Medium.Commit.
func (s *SQLite) Commit() error {
	if len(s.pending) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrMedium, err)
	}
	for addr, v := range s.pending {
		if _, err := tx.ExecContext(ctx, upsertCell, addr, int(v)); err != nil {
			tx.Rollback() //nolint:errcheck // already failing
			return fmt.Errorf("%w: write cell %d: %w", ErrMedium, addr, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrMedium, err)
	}
	clear(s.pending)
	return nil
}

// Close implements Medium.Close.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
