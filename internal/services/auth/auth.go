// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements signup, email verification and login.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vinovest/sqlx"

	"codeberg.org/campusforum/forum-auth/internal/config"
	"codeberg.org/campusforum/forum-auth/internal/repository"
	"codeberg.org/campusforum/forum-auth/internal/services/codes"
	"codeberg.org/campusforum/forum-auth/internal/services/password"
)

// DefaultCodeMaxAttempts is the number of wrong codes after which a
// verification record is burned.
const DefaultCodeMaxAttempts = 5

// Notifier delivers verification codes to users.
type Notifier interface {
	SendVerificationCode(ctx context.Context, to, username, code string, expiresAt time.Time) error
}

// Service coordinates accounts, verification records and the login ledger.
type Service struct {
	repo     *repository.Repository
	hasher   *password.Hasher
	codes    *codes.Generator
	notifier Notifier
	now      func() time.Time

	codeTTL          time.Duration
	codeMaxAttempts  int
	lockoutWindow    time.Duration
	lockoutThreshold int
	queryTimeout     time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates the auth service.
func NewService(repo *repository.Repository, hasher *password.Hasher, gen *codes.Generator, notifier Notifier, cfg *config.AuthConfig, queryTimeout time.Duration, opts ...Option) *Service {
	s := &Service{
		repo:             repo,
		hasher:           hasher,
		codes:            gen,
		notifier:         notifier,
		now:              time.Now,
		codeTTL:          cfg.CodeTTL + cfg.CodeGrace,
		codeMaxAttempts:  cfg.CodeMaxAttempts,
		lockoutWindow:    cfg.LockoutWindow,
		lockoutThreshold: cfg.LockoutThreshold,
		queryTimeout:     queryTimeout,
	}
	if s.codeMaxAttempts <= 0 {
		s.codeMaxAttempts = DefaultCodeMaxAttempts
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// withTimeout bounds a single store operation.
func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// inTx runs fn in a transaction bounded by the query timeout.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(ctx, tx)
	})
}

// storeError translates a store failure that has no more specific meaning.
func storeError(op string, err error) error {
	if repository.KindOf(err) == repository.KindUnavailable {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
