// Package storage persists assistant state as key-addressed blobs in an
// embedded libsql database. Mutations to the task store and conversation
// log are written back as snapshots; PutAll commits every key in one
// transaction so the task collection, identifier counter, and log can
// never diverge on disk.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"
)

// ErrStorageFailure marks a failed commit. It is the only storage
// condition that propagates to callers as a fatal error; everything
// above this layer treats it as "state could not be guaranteed durable".
var ErrStorageFailure = errors.New("storage: commit failed")

// Well-known snapshot keys.
const (
	KeyTasks        = "tasks"
	KeyConversation = "conversation"
)

// Store is the durable key/blob store for one assistant instance.
type Store struct {
	db      *sql.DB
	timeout time.Duration
	logger  zerolog.Logger
}

// Open connects to the embedded database at path, creating the file and
// its directory when missing, and brings the schema up to date. timeout
// bounds each write from the caller's perspective; zero disables the
// bound.
func Open(path string, timeout time.Duration, logger zerolog.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create database directory %s: %w", dir, err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info().Str("path", path).Msg("database not found, creating a new one")
		file, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("could not create db at path %s: %w", path, err)
		}
		file.Close()
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_synchronous=NORMAL", path)
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql connection: %w", err)
	}

	var one int
	if err := db.QueryRowContext(context.Background(), "SELECT 1").Scan(&one); err != nil {
		db.Close()
		return nil, fmt.Errorf("connectivity check failed: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug().Str("path", path).Msg("storage ready")
	return &Store{db: db, timeout: timeout, logger: logger}, nil
}

// DB exposes the underlying connection so sibling components (the vector
// index) can share the same database file.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the blob stored under key. A missing key is ok=false, not
// an error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read snapshot %q: %w", key, err)
	}
	return data, true, nil
}

// PutAll writes every supplied key in a single transaction. Either all
// keys are replaced or none are; any failure is reported as a
// StorageFailure.
func (s *Store) PutAll(ctx context.Context, blobs map[string][]byte) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStorageFailure, err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for key, data := range blobs {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO snapshots (key, data, updated_at) VALUES (?, ?, ?)`,
			key, data, now)
		if err != nil {
			return fmt.Errorf("%w: write %q: %v", ErrStorageFailure, key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return nil
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
