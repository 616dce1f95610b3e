// Package sqlitestore is the SQLite implementation of storage.Store, used for
// single-operator installs and tests.
package sqlitestore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/tournevent/courierbridge/internal/models"
	"github.com/tournevent/courierbridge/internal/storage"
)

var _ storage.Store = (*Storage)(nil)

type Storage struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path. Use ":memory:" for an
// ephemeral database.
func New(ctx context.Context, path string) (*Storage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create database directory")
		}
	}

	db, err := sql.Open("sqlite3", path+"?_loc=UTC&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enable foreign keys")
	}

	s := &Storage{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(models.ErrNotFound, what)
	}
	return errors.Wrap(err, what)
}
