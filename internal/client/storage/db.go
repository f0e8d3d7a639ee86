// Package storage opens the local SQLite vault and hands out repositories
// bound either to the database or to a running transaction.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/authigel/internal/client/migrations"
	"github.com/dmitrijs2005/authigel/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/authigel/internal/client/repositories/records"
	"github.com/dmitrijs2005/authigel/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Repositories groups the repositories sharing one DBTX.
type Repositories struct {
	Records  records.Repository
	Metadata metadata.Repository
}

func newRepositories(db dbx.DBTX) Repositories {
	return Repositories{
		Records:  records.NewSQLiteRepository(db),
		Metadata: metadata.NewSQLiteRepository(db),
	}
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Store is the opened vault database.
type Store struct {
	db    *sql.DB
	repos Repositories
}

// Open opens (creating if needed) the SQLite database at dsn and migrates it.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer at a time; also keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Store{db: db, repos: newRepositories(db)}, nil
}

func (s *Store) Repos() Repositories { return s.repos }

// WithTx runs fn with repositories bound to a single transaction.
// Inside fn only the passed repositories may be used.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, newRepositories(tx))
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
