// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"database/sql"
	"time"
)

// User represents a registered forum member.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID            int64        `db:"id" json:"id"`
	Username      string       `db:"username" json:"username"`
	Email         string       `db:"email" json:"email"`
	PasswordHash  string       `db:"password_hash" json:"-"`
	EmailVerified bool         `db:"email_verified" json:"email_verified"`
	IsActive      bool         `db:"is_active" json:"is_active"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
	LastLoginAt   sql.NullTime `db:"last_login_at" json:"-"`
}

// LastLogin returns the time of the last successful login, or nil if the
// user never logged in.
func (u *User) LastLogin() *time.Time {
	if !u.LastLoginAt.Valid {
		return nil
	}
	t := u.LastLoginAt.Time
	return &t
}

// CanLogin reports whether the account may start a session.
func (u *User) CanLogin() bool {
	return u.IsActive && u.EmailVerified
}
