// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/vinovest/sqlx"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embedMigrations embed.FS

// newProvider builds a goose provider for the dialect of db. Providers carry
// no package-level state, so several databases can migrate concurrently.
func newProvider(db *sqlx.DB) (*goose.Provider, error) {
	dialect := goose.DialectSQLite3
	dir := "migrations/sqlite"
	if DialectOfDB(db) == Postgres {
		dialect = goose.DialectPostgres
		dir = "migrations/postgres"
	}

	fsys, err := fs.Sub(embedMigrations, dir)
	if err != nil {
		return nil, err
	}

	return goose.NewProvider(dialect, db.DB, fsys)
}

// RunMigrations runs all pending goose migrations.
func RunMigrations(ctx context.Context, db *sqlx.DB) error {
	provider, err := newProvider(db)
	if err != nil {
		return err
	}

	_, err = provider.Up(ctx)
	return err
}

// MigrateDown rolls back the last migration.
func MigrateDown(ctx context.Context, db *sqlx.DB) error {
	provider, err := newProvider(db)
	if err != nil {
		return err
	}

	_, err = provider.Down(ctx)
	return err
}

// MigrateReset rolls back all migrations.
func MigrateReset(ctx context.Context, db *sqlx.DB) error {
	provider, err := newProvider(db)
	if err != nil {
		return err
	}

	_, err = provider.DownTo(ctx, 0)
	return err
}

// MigrationStatus returns one line per known migration, e.g. "00001 applied".
func MigrationStatus(ctx context.Context, db *sqlx.DB) ([]string, error) {
	provider, err := newProvider(db)
	if err != nil {
		return nil, err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(statuses))
	for _, s := range statuses {
		lines = append(lines, fmt.Sprintf("%05d %s", s.Source.Version, s.State))
	}
	return lines, nil
}
