// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vinovest/sqlx"

	"codeberg.org/campusforum/forum-auth/internal/models"
	"codeberg.org/campusforum/forum-auth/internal/repository"
)

// SignupParams holds the parameters for account creation. Shape validation
// happens before the service is called.
type SignupParams struct {
	Username string
	Email    string
	Password string
}

// SignupResult describes a committed account and its verification record.
type SignupResult struct {
	ExpiresAt         time.Time `json:"expiresAt"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	VerificationToken string    `json:"verificationToken"`
	UserID            int64     `json:"userId"`
}

// Signup creates an unverified account together with its first verification
// record and sends the code. If delivery fails the account stays committed:
// the result is returned along with ErrNotificationFailed and the user can
// request a new code.
func (s *Service) Signup(ctx context.Context, params SignupParams) (*SignupResult, error) {
	username := strings.TrimSpace(params.Username)
	email := NormalizeEmail(params.Email)

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccountCreation, err)
	}

	now := s.clock()
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	verification, err := s.newVerification(email, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccountCreation, err)
	}

	err = s.inTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := s.repo.CreateUser(ctx, tx, user); err != nil {
			return err
		}
		return s.replaceVerification(ctx, tx, verification, now)
	})
	if err != nil {
		return nil, signupError(err)
	}

	slog.Info("signup_success", "user_id", user.ID, "username", username)

	result := &SignupResult{
		UserID:            user.ID,
		Username:          username,
		Email:             email,
		VerificationToken: verification.Token,
		ExpiresAt:         verification.ExpiresAt,
	}

	if err := s.notifier.SendVerificationCode(ctx, email, username, verification.OTP, verification.ExpiresAt); err != nil {
		slog.Error("verification_notify_failed", "user_id", user.ID, "error", err)
		return result, fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}

	return result, nil
}

func signupError(err error) error {
	var storeErr *repository.Error
	if !errors.As(err, &storeErr) {
		return fmt.Errorf("%w: %w", ErrAccountCreation, err)
	}

	switch storeErr.Kind {
	case repository.KindDuplicate:
		if storeErr.Field == "email" || storeErr.Field == "username" {
			slog.Info("signup_duplicate", "field", storeErr.Field)
			return &DuplicateAccountError{Field: storeErr.Field}
		}
	case repository.KindUnavailable:
		slog.Error("signup_store_unavailable", "error", err)
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	slog.Error("signup_failed", "error", err)
	return fmt.Errorf("%w: %w", ErrAccountCreation, err)
}

// newVerification builds an unsaved record with a fresh token and code.
func (s *Service) newVerification(email string, now time.Time) (*models.Verification, error) {
	token, err := s.codes.Token()
	if err != nil {
		return nil, err
	}
	code, err := s.codes.Code()
	if err != nil {
		return nil, err
	}

	return &models.Verification{
		Email:     email,
		Token:     token,
		OTP:       code,
		ExpiresAt: now.Add(s.codeTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// replaceVerification invalidates all unused records for the email and
// stores v, leaving v as the only live record.
func (s *Service) replaceVerification(ctx context.Context, tx *sqlx.Tx, v *models.Verification, now time.Time) error {
	if _, err := s.repo.InvalidateVerifications(ctx, tx, v.Email, now); err != nil {
		return err
	}
	return s.repo.CreateVerification(ctx, tx, v)
}
