// Package store implements the local store adapter: CRUD and predicate
// queries over the embedded on-device database. It is the single source of
// truth for durability; every engine write path completes a local save
// before any remote propagation is attempted.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/infinitumhq/infinitum/internal/store/migrations"

	_ "modernc.org/sqlite"
)

// Store bundles the database handle with the entity repositories. The store
// assumes single-process, single-active-instance access.
type Store struct {
	db *sql.DB

	Users     *UserRepository
	Sessions  *SessionRepository
	Positions *PositionRepository
}

// Open opens the sqlite database at dsn, applies pending migrations and
// returns the repositories.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr("open", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, storageErr("migrate", err)
	}

	return &Store{
		db:        db,
		Users:     NewUserRepository(db),
		Sessions:  NewSessionRepository(db),
		Positions: NewPositionRepository(db),
	}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for transactional composition via dbx.WithTx.
func (s *Store) DB() *sql.DB {
	return s.db
}
