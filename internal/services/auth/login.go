// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vinovest/sqlx"

	"codeberg.org/campusforum/forum-auth/internal/models"
	"codeberg.org/campusforum/forum-auth/internal/repository"
)

// LoginParams holds the credentials and request metadata of a login.
type LoginParams struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginResult holds the public fields of an authenticated account.
type LoginResult struct {
	LastLogin *time.Time `json:"lastLogin"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	ID        int64      `json:"id"`
}

// Login authenticates an account. Outcomes are checked in a fixed order:
// locked, unknown account, deactivated, unverified, wrong password, success.
// Every outcome is written to the login ledger; ledger failures are logged
// and never change the outcome.
//
// The lockout and account reads run on the pool rather than in one
// transaction with the ledger write, and failed attempts are recorded on
// their own. Only a success commits its ledger row, last-login time and hash
// upgrade together. Password hashing therefore never runs while a
// transaction holds the SQLite write lock. Concurrent failures for the same
// email may each pass the lockout check before any of them is recorded.
func (s *Service) Login(ctx context.Context, params LoginParams) (*LoginResult, error) {
	email := NormalizeEmail(params.Email)
	now := s.clock()
	attempt := &models.LoginAttempt{
		Email:       email,
		IPAddress:   params.IPAddress,
		UserAgent:   params.UserAgent,
		AttemptedAt: now,
	}

	qctx, cancel := s.withTimeout(ctx)
	defer cancel()

	state, err := s.repo.GetLockoutState(qctx, s.repo.DB(), email, now, s.lockoutWindow, s.lockoutThreshold)
	if err != nil {
		slog.Error("lockout_state_failed", "error", err)
		return nil, fmt.Errorf("login: %w: %w", ErrStoreUnavailable, err)
	}

	// Locked emails never reach the hasher.
	if state.Locked(now) {
		if user, err := s.repo.GetUserByEmail(qctx, s.repo.DB(), email); err == nil {
			attempt.UserID = sql.NullInt64{Int64: user.ID, Valid: true}
		}
		s.recordFailure(ctx, attempt, "locked")
		return nil, &AccountLockedError{LockedUntil: *state.LockedUntil}
	}

	user, err := s.repo.GetUserByEmail(qctx, s.repo.DB(), email)
	if errors.Is(err, repository.ErrNotFound) {
		s.hasher.DummyVerify(params.Password)
		s.recordFailure(ctx, attempt, "unknown_account")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		slog.Error("login_lookup_failed", "error", err)
		return nil, fmt.Errorf("login: %w: %w", ErrStoreUnavailable, err)
	}

	attempt.UserID = sql.NullInt64{Int64: user.ID, Valid: true}

	if !user.IsActive {
		s.recordFailure(ctx, attempt, "deactivated")
		return nil, ErrDeactivatedAccount
	}

	if !user.EmailVerified {
		s.recordFailure(ctx, attempt, "unverified")
		return nil, ErrUnverifiedEmail
	}

	ok, err := s.hasher.Verify(params.Password, user.PasswordHash)
	if err != nil {
		slog.Error("password_hash_unreadable", "user_id", user.ID, "error", err)
	}
	if !ok {
		s.recordFailure(ctx, attempt, "invalid_password")
		return nil, ErrInvalidCredentials
	}

	rehash := s.upgradedHash(user, params.Password)

	attempt.Success = true
	err = s.inTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := s.repo.RecordLoginAttempt(ctx, tx, attempt); err != nil {
			slog.Warn("login_attempt_record_failed", "user_id", user.ID, "error", err)
		}
		if rehash != "" {
			if err := s.repo.UpdatePasswordHash(ctx, tx, user.ID, rehash, now); err != nil {
				return err
			}
		}
		return s.repo.TouchLastLogin(ctx, tx, user.ID, now)
	})
	if err != nil {
		slog.Error("login_commit_failed", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("login: %w: %w", ErrStoreUnavailable, err)
	}

	slog.Info("login_success", "user_id", user.ID)

	return &LoginResult{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		LastLogin: &now,
	}, nil
}

// recordFailure logs and records a failed attempt outside any transaction.
func (s *Service) recordFailure(ctx context.Context, attempt *models.LoginAttempt, reason string) {
	slog.Warn("login_failed", "reason", reason, "user_id", attempt.UserID.Int64, "ip", attempt.IPAddress)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.RecordLoginAttempt(ctx, s.repo.DB(), attempt); err != nil {
		slog.Warn("login_attempt_record_failed", "reason", reason, "error", err)
	}
}

// upgradedHash returns a new hash when the stored one uses weaker
// parameters, or "" when no upgrade is needed or possible.
func (s *Service) upgradedHash(user *models.User, plain string) string {
	needs, err := s.hasher.NeedsUpgrade(user.PasswordHash)
	if err != nil || !needs {
		return ""
	}
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		slog.Warn("password_rehash_failed", "user_id", user.ID, "error", err)
		return ""
	}
	return hash
}
