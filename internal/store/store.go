// Package store is the backlog store (spec.md §4.A): a durable,
// concurrency-safe repository of features, their dependency edges, their
// test-run history, and agent memory, backed by a single-file embedded
// database per project.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// lockTimeout bounds how long a caller waits for the store's immediate
// write lock before failing with a transient error.
const lockTimeout = 30 * time.Second

// Store is a project's backlog database. All exported methods are safe
// for concurrent use from multiple goroutines within this process; safety
// across processes comes from SQLite's own locking plus the immediate-
// transaction discipline used by every read-write method.
type Store struct {
	mu       sync.RWMutex
	db       *sql.DB
	path     string
	networkFS bool
}

// Open opens (creating if absent) the backlog database at path, applies
// pragmas appropriate to the underlying filesystem, and runs migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create backlog store directory: %w", err)
		}
	}

	networked := isNetworkFilesystem(path)

	// _txlock=immediate makes every database/sql transaction begin with
	// BEGIN IMMEDIATE rather than SQLite's default deferred mode, so the
	// write lock is acquired up front instead of at the first write
	// statement — the discipline spec.md §4.A requires for cycle-check
	// validation to see the snapshot it will commit.
	dsn := fmt.Sprintf("file:%s?_txlock=immediate", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open backlog store: %w", err)
	}
	db.SetMaxOpenConns(1) // one writer connection avoids SQLITE_BUSY races in-process.

	s := &Store{db: db, path: path, networkFS: networked}

	if err := s.applyPragmas(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure backlog store: %w", err)
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate backlog store: %w", err)
	}
	return s, nil
}

func (s *Store) applyPragmas(ctx context.Context) error {
	journalMode := "WAL"
	if s.networkFS {
		// WAL relies on shared-memory mmap semantics that can silently
		// corrupt over NFS/CIFS; fall back to the rollback journal.
		journalMode = "DELETE"
		logNetworkFSFallback(s.path)
	}
	pragmas := []string{
		"PRAGMA journal_mode=" + journalMode,
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=" + fmt.Sprintf("%d", lockTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// beginImmediate starts a transaction. Because the connection DSN carries
// _txlock=immediate, this acquires SQLite's write lock immediately rather
// than at the first write statement, so the snapshot read inside the
// transaction is the snapshot that will be written — the concurrency
// discipline spec.md §4.A requires for every operation that both reads
// and writes.
func (s *Store) beginImmediate(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int64) bool {
	return i != 0
}
