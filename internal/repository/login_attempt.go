// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/campusforum/forum-auth/internal/models"
)

// RecordLoginAttempt appends an entry to the login ledger. Inside a
// transaction the insert runs under a savepoint, so a failed write leaves
// the transaction intact and the caller may carry on.
func (r *Repository) RecordLoginAttempt(ctx context.Context, q Querier, a *models.LoginAttempt) error {
	return savepoint(ctx, q, "login_attempt", func() error {
		err := q.GetContext(ctx, &a.ID, q.Rebind(
			`INSERT INTO login_attempts (user_id, email, success, ip_address, user_agent, attempted_at)
			 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
			a.UserID, a.Email, a.Success, a.IPAddress, a.UserAgent, a.AttemptedAt)
		return classify("record login attempt", err)
	})
}

// GetLockoutState derives the lockout state for email from failed attempts in
// the trailing window. The account is locked once threshold failures are
// reached, until the newest failure plus window.
func (r *Repository) GetLockoutState(ctx context.Context, q Querier, email string, now time.Time, window time.Duration, threshold int) (models.LockoutState, error) {
	var state models.LockoutState
	since := now.Add(-window)

	err := q.GetContext(ctx, &state.Failures, q.Rebind(
		`SELECT COUNT(*) FROM login_attempts WHERE email = ? AND success = FALSE AND attempted_at >= ?`),
		email, since)
	if err != nil {
		return state, classify("count failed attempts", err)
	}
	if state.Failures == 0 {
		return state, nil
	}

	err = q.GetContext(ctx, &state.LastFailure, q.Rebind(
		`SELECT attempted_at FROM login_attempts WHERE email = ? AND success = FALSE AND attempted_at >= ?
		 ORDER BY attempted_at DESC LIMIT 1`),
		email, since)
	if err != nil {
		return state, classify("latest failed attempt", err)
	}

	if state.Failures >= threshold {
		until := state.LastFailure.Add(window)
		state.LockedUntil = &until
	}
	return state, nil
}

// ListLoginAttempts returns ledger entries for email, newest first.
func (r *Repository) ListLoginAttempts(ctx context.Context, q Querier, email string) ([]models.LoginAttempt, error) {
	var list []models.LoginAttempt
	err := q.SelectContext(ctx, &list, q.Rebind(
		`SELECT id, user_id, email, success, ip_address, user_agent, attempted_at
		 FROM login_attempts WHERE email = ? ORDER BY attempted_at DESC, id DESC`), email)
	if err != nil {
		return nil, classify("list login attempts", err)
	}
	return list, nil
}

// DeleteLoginAttemptsBefore purges ledger entries older than the cutoff.
func (r *Repository) DeleteLoginAttemptsBefore(ctx context.Context, q Querier, before time.Time) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM login_attempts WHERE attempted_at < ?`), before)
	if err != nil {
		return 0, classify("delete login attempts", err)
	}
	n, err := res.RowsAffected()
	return n, classify("delete login attempts", err)
}
