// Package sqlite opens the sqlite3 database diskprep uses to persist
// applied-plan history (see pkg/planstore), with connection settings
// tuned for a single-writer, occasional-reader workload: WAL journaling,
// a busy timeout so a concurrent reader never collides
// with an in-flight apply, and immediate transaction locking.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// BuildConnectionString renders dbFile and opts into a go-sqlite3 DSN.
func BuildConnectionString(dbFile string, opts ...OpOption) (string, error) {
	op := &Op{}
	if err := op.applyOpts(opts); err != nil {
		return "", err
	}

	var b strings.Builder
	if dbFile == ":memory:" {
		b.WriteString("file::memory:")
	} else {
		fmt.Fprintf(&b, "file:%s", dbFile)
	}
	b.WriteString("?")

	params := []string{
		"_busy_timeout=5000",
		"_journal_mode=WAL",
		"_synchronous=NORMAL",
	}

	if dbFile == ":memory:" && op.cache != "" {
		params = append([]string{"cache=" + op.cache}, params...)
	}

	if op.readOnly {
		params = append(params, "mode=ro")
	} else {
		params = append(params, "_txlock=immediate")
	}

	b.WriteString(strings.Join(params, "&"))
	return b.String(), nil
}

// Open opens a sqlite3 database at dbFile (or ":memory:"), applying opts.
// A read-write handle is limited to a single connection: sqlite3 allows
// only one writer, and serializing through one *sql.DB connection avoids
// SQLITE_BUSY errors that _busy_timeout cannot fully mask under
// concurrent writes.
func Open(dbFile string, opts ...OpOption) (*sql.DB, error) {
	op := &Op{}
	if err := op.applyOpts(opts); err != nil {
		return nil, err
	}

	conns, err := BuildConnectionString(dbFile, opts...)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", conns)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %q: %w", dbFile, err)
	}

	if !op.readOnly {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// TableExists reports whether the named table exists in db.
func TableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var name string
	err := db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: checking table %q: %w", table, err)
	}
	return true, nil
}
