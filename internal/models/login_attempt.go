// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"database/sql"
	"time"
)

// LoginAttempt is one entry of the append-only login ledger. UserID is unset
// when the email did not resolve to an account.
type LoginAttempt struct { //nolint:govet // fieldalignment: readability over optimization
	ID          int64         `db:"id" json:"id"`
	UserID      sql.NullInt64 `db:"user_id" json:"-"`
	Email       string        `db:"email" json:"email"`
	Success     bool          `db:"success" json:"success"`
	IPAddress   string        `db:"ip_address" json:"ip_address"`
	UserAgent   string        `db:"user_agent" json:"user_agent"`
	AttemptedAt time.Time     `db:"attempted_at" json:"attempted_at"`
}

// LockoutState summarizes recent failed attempts for one email.
type LockoutState struct {
	// LastFailure is the newest failed attempt inside the window.
	LastFailure time.Time
	// Failures counts failed attempts inside the window.
	Failures int
	// LockedUntil is set when Failures reached the threshold.
	LockedUntil *time.Time
}

// Locked reports whether the account is locked at now.
func (s LockoutState) Locked(now time.Time) bool {
	return s.LockedUntil != nil && now.Before(*s.LockedUntil)
}
