// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"time"

	"codeberg.org/campusforum/forum-auth/internal/models"
)

const userColumns = `id, username, email, password_hash, email_verified, is_active, created_at, updated_at, last_login_at`

// CreateUser inserts a new account and sets its ID. Uniqueness of username and
// email is enforced by the store and reported as KindDuplicate.
func (r *Repository) CreateUser(ctx context.Context, q Querier, user *models.User) error {
	err := q.GetContext(ctx, &user.ID, q.Rebind(
		`INSERT INTO users (username, email, password_hash, email_verified, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		user.Username, user.Email, user.PasswordHash, user.EmailVerified, user.IsActive, user.CreatedAt, user.UpdatedAt)
	return classify("create user", err)
}

// GetUserByID retrieves an account by ID.
func (r *Repository) GetUserByID(ctx context.Context, q Querier, id int64) (*models.User, error) {
	var user models.User
	err := q.GetContext(ctx, &user, q.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if err != nil {
		return nil, classify("get user by id", err)
	}
	return &user, nil
}

// GetUserByEmail retrieves an account by email address.
func (r *Repository) GetUserByEmail(ctx context.Context, q Querier, email string) (*models.User, error) {
	var user models.User
	err := q.GetContext(ctx, &user, q.Rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`), email)
	if err != nil {
		return nil, classify("get user by email", err)
	}
	return &user, nil
}

// MarkEmailVerified flags the account owning email as verified.
func (r *Repository) MarkEmailVerified(ctx context.Context, q Querier, email string, now time.Time) error {
	res, err := q.ExecContext(ctx, q.Rebind(
		`UPDATE users SET email_verified = TRUE, updated_at = ? WHERE email = ?`), now, email)
	return requireRow("mark email verified", res, err)
}

// TouchLastLogin records a successful login time.
func (r *Repository) TouchLastLogin(ctx context.Context, q Querier, id int64, now time.Time) error {
	res, err := q.ExecContext(ctx, q.Rebind(
		`UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`), now, now, id)
	return requireRow("touch last login", res, err)
}

// SetUserActive activates or deactivates an account.
func (r *Repository) SetUserActive(ctx context.Context, q Querier, id int64, active bool, now time.Time) error {
	res, err := q.ExecContext(ctx, q.Rebind(
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`), active, now, id)
	return requireRow("set user active", res, err)
}

// requireRow classifies err and reports KindNotFound when no row changed.
func requireRow(op string, res sql.Result, err error) error {
	if err != nil {
		return classify(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if n == 0 {
		return classify(op, sql.ErrNoRows)
	}
	return nil
}

// UpdatePasswordHash replaces the stored hash, e.g. after a parameter upgrade.
func (r *Repository) UpdatePasswordHash(ctx context.Context, q Querier, id int64, hash string, now time.Time) error {
	res, err := q.ExecContext(ctx, q.Rebind(
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`), hash, now, id)
	return requireRow("update password hash", res, err)
}
