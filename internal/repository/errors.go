// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Kind classifies store failures so callers can switch on it instead of
// inspecting driver errors.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindDuplicate
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindDuplicate:
		return "duplicate"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// ErrNotFound matches any *Error of KindNotFound via errors.Is.
var ErrNotFound = errors.New("record not found")

// Error is the only error type returned by the store.
type Error struct {
	Err   error
	Op    string
	Field string // set for KindDuplicate: "email" or "username"
	Kind  Kind
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Op, e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports ErrNotFound for not-found errors.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Kind == KindNotFound
}

// KindOf returns the Kind of a store error, or KindInternal for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// classify wraps a driver error into an *Error. nil stays nil.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return err
	}

	e := &Error{Op: op, Err: err, Kind: KindInternal}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		e.Kind = KindNotFound
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone):
		e.Kind = KindUnavailable
	default:
		classifyDriver(err, e)
	}

	return e
}

func classifyDriver(err error, e *Error) {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		switch {
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			e.Kind = KindDuplicate
			e.Field = duplicateField(sqliteErr.Error())
		case code&0xff == sqlite3.SQLITE_BUSY || code&0xff == sqlite3.SQLITE_LOCKED:
			e.Kind = KindUnavailable
		}
		return
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			e.Kind = KindDuplicate
			e.Field = duplicateField(pgErr.ConstraintName)
		case pgErr.Code == "40001", pgErr.Code == "40P01", strings.HasPrefix(pgErr.Code, "08"):
			e.Kind = KindUnavailable
		case pgErr.Code == "57014": // query_canceled
			e.Kind = KindUnavailable
		}
		return
	}

	if pgconn.Timeout(err) {
		e.Kind = KindUnavailable
	}
}

// duplicateField extracts the violated column from a SQLite message
// ("UNIQUE constraint failed: users.email") or a Postgres constraint name
// ("users_email_key").
func duplicateField(s string) string {
	switch {
	case strings.Contains(s, "users.email"), strings.Contains(s, "users_email_key"):
		return "email"
	case strings.Contains(s, "users.username"), strings.Contains(s, "users_username_key"):
		return "username"
	case strings.Contains(s, "verifications.token"), strings.Contains(s, "verifications_token_key"):
		return "token"
	default:
		return ""
	}
}
