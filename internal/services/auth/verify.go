// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vinovest/sqlx"

	"codeberg.org/campusforum/forum-auth/internal/repository"
	"codeberg.org/campusforum/forum-auth/internal/services/codes"
)

// VerifyResult identifies the account whose email was verified.
type VerifyResult struct {
	Email  string `json:"email"`
	UserID int64  `json:"userId"`
}

// Verify redeems a (token, code) pair. Unknown tokens, wrong codes, used or
// expired records and lost races all return ErrInvalidOrExpiredCode. Wrong
// codes are counted on the record, which is burned once the count reaches
// the attempt limit; until then it stays redeemable.
func (s *Service) Verify(ctx context.Context, token, otp string) (*VerifyResult, error) {
	now := s.clock()
	var result VerifyResult
	var rejected bool

	err := s.inTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		v, err := s.repo.LockVerificationByToken(ctx, tx, token, now)
		if err != nil {
			return err
		}

		if subtle.ConstantTimeCompare([]byte(codes.Normalize(otp)), []byte(v.OTP)) != 1 {
			// The counter must commit, so the rejection is reported after the tx.
			rejected = true
			return s.countWrongCode(ctx, tx, v.ID, now)
		}

		if err := s.repo.ConsumeVerification(ctx, tx, v.ID, now); err != nil {
			return err
		}
		if err := s.repo.MarkEmailVerified(ctx, tx, v.Email, now); err != nil {
			return err
		}

		user, err := s.repo.GetUserByEmail(ctx, tx, v.Email)
		if err != nil {
			return err
		}

		result = VerifyResult{UserID: user.ID, Email: user.Email}
		return nil
	})

	switch {
	case err == nil && rejected:
		slog.Info("verification_failed")
		return nil, ErrInvalidOrExpiredCode
	case err == nil:
		slog.Info("email_verified", "user_id", result.UserID)
		return &result, nil
	case errors.Is(err, ErrInvalidOrExpiredCode), errors.Is(err, repository.ErrNotFound):
		slog.Info("verification_failed")
		return nil, ErrInvalidOrExpiredCode
	default:
		slog.Error("verification_error", "error", err)
		return nil, storeError("verify", err)
	}
}

// countWrongCode records a wrong code and burns the record at the limit.
func (s *Service) countWrongCode(ctx context.Context, tx *sqlx.Tx, id int64, now time.Time) error {
	attempts, err := s.repo.IncrementVerificationAttempts(ctx, tx, id, now)
	if err != nil {
		return err
	}
	if attempts < s.codeMaxAttempts {
		return nil
	}
	slog.Warn("verification_exhausted", "verification_id", id, "attempts", attempts)
	return s.repo.ConsumeVerification(ctx, tx, id, now)
}

// ResendResult carries the token the next code must be submitted with.
type ResendResult struct {
	ExpiresAt         time.Time `json:"expiresAt"`
	VerificationToken string    `json:"verificationToken"`
}

// ResendVerification issues a fresh code for an active, unverified account
// and invalidates older ones. For unknown or already verified addresses it
// does nothing but still returns a well-formed result, so responses do not
// reveal which emails are registered. Delivery failures are logged only for
// the same reason.
func (s *Service) ResendVerification(ctx context.Context, email string) (*ResendResult, error) {
	email = NormalizeEmail(email)
	now := s.clock()

	qctx, cancel := s.withTimeout(ctx)
	user, err := s.repo.GetUserByEmail(qctx, s.repo.DB(), email)
	cancel()

	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		slog.Error("resend_lookup_failed", "error", err)
		return nil, storeError("resend verification", err)
	}

	if err != nil || user.EmailVerified || !user.IsActive {
		return s.decoyResend(now)
	}

	verification, err := s.newVerification(email, now)
	if err != nil {
		return nil, fmt.Errorf("resend verification: %w", err)
	}

	err = s.inTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		return s.replaceVerification(ctx, tx, verification, now)
	})
	if err != nil {
		slog.Error("resend_failed", "user_id", user.ID, "error", err)
		return nil, storeError("resend verification", err)
	}

	slog.Info("verification_reissued", "user_id", user.ID)

	if err := s.notifier.SendVerificationCode(ctx, email, user.Username, verification.OTP, verification.ExpiresAt); err != nil {
		slog.Error("verification_notify_failed", "user_id", user.ID, "error", err)
	}

	return &ResendResult{VerificationToken: verification.Token, ExpiresAt: verification.ExpiresAt}, nil
}

// decoyResend returns a token that was never stored.
func (s *Service) decoyResend(now time.Time) (*ResendResult, error) {
	token, err := s.codes.Token()
	if err != nil {
		return nil, fmt.Errorf("resend verification: %w", err)
	}
	return &ResendResult{VerificationToken: token, ExpiresAt: now.Add(s.codeTTL)}, nil
}
