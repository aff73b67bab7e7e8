package db

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when a task or session does not exist.
var ErrNotFound = errors.New("not found")

// DB manages a write connection and a read-only pool.
type DB struct {
	writer *sql.DB
	reader *sql.DB
	mu     sync.Mutex // serializes writes

	subMu sync.Mutex
	subs  map[int]chan struct{}
	next  int
}

// makeDSN builds a SQLite connection string with shared pragmas.
func makeDSN(path string, readOnly bool) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_foreign_keys", "ON")
	params.Set("_cache_size", "-16000")
	if readOnly {
		params.Set("mode", "ro")
	} else {
		params.Set("_synchronous", "NORMAL")
	}
	return path + "?" + params.Encode()
}

// Open creates or opens a SQLite database at the given path.
// It configures WAL mode and returns a DB with separate writer
// and reader connections.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	writer, err := sql.Open("sqlite3", makeDSN(path, false))
	if err != nil {
		return nil, fmt.Errorf("opening writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	db := &DB{writer: writer, subs: make(map[int]chan struct{})}

	// The schema must exist before a read-only connection can
	// open the file.
	if err := db.init(); err != nil {
		writer.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	reader, err := sql.Open("sqlite3", makeDSN(path, true))
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("opening reader: %w", err)
	}
	reader.SetMaxOpenConns(4)
	db.reader = reader
	return db, nil
}

// ensureColumn adds a column if it doesn't already exist.
func (db *DB) ensureColumn(
	table, column, definition string,
) error {
	countQuery := fmt.Sprintf(
		"SELECT count(*) FROM pragma_table_info('%s')"+
			" WHERE name='%s'",
		table, column,
	)
	var count int
	if err := db.writer.QueryRow(countQuery).Scan(&count); err != nil {
		return fmt.Errorf(
			"checking column %s.%s: %w", table, column, err,
		)
	}
	if count > 0 {
		return nil
	}
	_, err := db.writer.Exec(fmt.Sprintf(
		"ALTER TABLE %s ADD COLUMN %s %s",
		table, column, definition,
	))
	if err == nil {
		return nil
	}
	// Another process may have added the column concurrently.
	var check int
	if checkErr := db.writer.QueryRow(countQuery).Scan(&check); checkErr == nil && check > 0 {
		return nil
	}
	return err
}

func (db *DB) init() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, err := db.writer.Exec(schemaSQL); err != nil {
		return err
	}

	// Columns added to tasks after the first release.
	migrations := []struct {
		column, definition string
	}{
		{"description", "TEXT NOT NULL DEFAULT ''"},
		{"importance", "TEXT NOT NULL DEFAULT 'normal'"},
		{"due_at", "TEXT"},
	}
	for _, m := range migrations {
		if err := db.ensureColumn("tasks", m.column, m.definition); err != nil {
			return fmt.Errorf("adding tasks.%s column: %w", m.column, err)
		}
	}

	if _, err := db.writer.Exec(
		`CREATE INDEX IF NOT EXISTS idx_tasks_done
		 ON tasks(is_done, importance)`,
	); err != nil {
		return fmt.Errorf("creating tasks index: %w", err)
	}
	return nil
}

// Close closes both writer and reader connections.
func (db *DB) Close() error {
	return errors.Join(db.writer.Close(), db.reader.Close())
}

// Update executes fn within a write lock and transaction.
// The transaction is committed if fn returns nil, rolled back
// otherwise.
func (db *DB) Update(fn func(tx *sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.writer.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Reader returns the read-only connection pool.
func (db *DB) Reader() *sql.DB {
	return db.reader
}
