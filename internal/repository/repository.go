// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vinovest/sqlx"
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx, so store methods can
// run standalone or inside a caller-owned transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	Rebind(query string) string
}

// Repository provides database operations for accounts, verification
// records and the login ledger.
type Repository struct {
	db *sqlx.DB
}

// New creates a new Repository instance.
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// DB returns the underlying connection pool.
func (r *Repository) DB() *sqlx.DB {
	return r.db
}

// Ping checks that the store is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return classify("ping", r.db.PingContext(ctx))
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back on error, panic or context cancellation.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify("begin", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = ctx.Err(); err != nil {
		return classify("commit", err)
	}

	if err = tx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}

// savepoint runs fn under a named savepoint when q is a transaction. A
// failing fn rolls back to the savepoint and leaves the enclosing
// transaction usable.
func savepoint(ctx context.Context, q Querier, name string, fn func() error) error {
	if _, ok := q.(*sqlx.Tx); !ok {
		return fn()
	}

	if _, err := q.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return classify("savepoint", err)
	}

	if err := fn(); err != nil {
		if _, rbErr := q.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return fmt.Errorf("%w (rollback to savepoint: %v)", err, rbErr)
		}
		_, _ = q.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
		return err
	}

	if _, err := q.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return classify("release savepoint", err)
	}
	return nil
}
