// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/vinovest/sqlx"

	"codeberg.org/campusforum/forum-auth/internal/database"
	"codeberg.org/campusforum/forum-auth/internal/models"
)

const verificationColumns = `id, email, token, otp, expires_at, used, attempts, created_at, updated_at`

// InvalidateVerifications marks every unused record for email as used and
// returns how many were invalidated.
func (r *Repository) InvalidateVerifications(ctx context.Context, q Querier, email string, now time.Time) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(
		`UPDATE verifications SET used = TRUE, updated_at = ? WHERE email = ? AND used = FALSE`), now, email)
	if err != nil {
		return 0, classify("invalidate verifications", err)
	}
	n, err := res.RowsAffected()
	return n, classify("invalidate verifications", err)
}

// CreateVerification inserts a new record and sets its ID.
func (r *Repository) CreateVerification(ctx context.Context, q Querier, v *models.Verification) error {
	err := q.GetContext(ctx, &v.ID, q.Rebind(
		`INSERT INTO verifications (email, token, otp, expires_at, used, created_at, updated_at)
		 VALUES (?, ?, ?, ?, FALSE, ?, ?) RETURNING id`),
		v.Email, v.Token, v.OTP, v.ExpiresAt, v.CreatedAt, v.UpdatedAt)
	return classify("create verification", err)
}

// LockVerificationByToken loads the unused, unexpired record for token inside
// tx. Postgres takes a row lock; SQLite transactions already hold the
// database write lock from BEGIN IMMEDIATE.
func (r *Repository) LockVerificationByToken(ctx context.Context, tx *sqlx.Tx, token string, now time.Time) (*models.Verification, error) {
	query := `SELECT ` + verificationColumns + ` FROM verifications
		WHERE token = ? AND used = FALSE AND expires_at > ?`
	if database.DialectOfDB(r.db) == database.Postgres {
		query += ` FOR UPDATE`
	}

	var v models.Verification
	if err := tx.GetContext(ctx, &v, tx.Rebind(query), token, now); err != nil {
		return nil, classify("lock verification", err)
	}
	return &v, nil
}

// ConsumeVerification marks a record used. It reports KindNotFound when the
// record was already consumed.
func (r *Repository) ConsumeVerification(ctx context.Context, tx *sqlx.Tx, id int64, now time.Time) error {
	res, err := tx.ExecContext(ctx, tx.Rebind(
		`UPDATE verifications SET used = TRUE, updated_at = ? WHERE id = ? AND used = FALSE`), now, id)
	return requireRow("consume verification", res, err)
}

// IncrementVerificationAttempts counts a wrong code against a record and
// returns the new total.
func (r *Repository) IncrementVerificationAttempts(ctx context.Context, tx *sqlx.Tx, id int64, now time.Time) (int, error) {
	var attempts int
	err := tx.GetContext(ctx, &attempts, tx.Rebind(
		`UPDATE verifications SET attempts = attempts + 1, updated_at = ? WHERE id = ? AND used = FALSE RETURNING attempts`),
		now, id)
	return attempts, classify("increment verification attempts", err)
}

// CountLiveVerifications counts unused, unexpired records for email.
func (r *Repository) CountLiveVerifications(ctx context.Context, q Querier, email string, now time.Time) (int, error) {
	var n int
	err := q.GetContext(ctx, &n, q.Rebind(
		`SELECT COUNT(*) FROM verifications WHERE email = ? AND used = FALSE AND expires_at > ?`), email, now)
	return n, classify("count live verifications", err)
}

// ListVerifications returns all records for email, newest first.
func (r *Repository) ListVerifications(ctx context.Context, q Querier, email string) ([]models.Verification, error) {
	var list []models.Verification
	err := q.SelectContext(ctx, &list, q.Rebind(
		`SELECT `+verificationColumns+` FROM verifications WHERE email = ? ORDER BY id DESC`), email)
	if err != nil {
		return nil, classify("list verifications", err)
	}
	return list, nil
}

// DeleteStaleVerifications deletes records that were used or expired before
// the cutoff.
func (r *Repository) DeleteStaleVerifications(ctx context.Context, q Querier, before time.Time) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(
		`DELETE FROM verifications WHERE (used = TRUE AND updated_at < ?) OR expires_at < ?`), before, before)
	if err != nil {
		return 0, classify("delete stale verifications", err)
	}
	n, err := res.RowsAffected()
	return n, classify("delete stale verifications", err)
}
