// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package sweeper purges expired login attempts and verification records
// outside the request path.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"codeberg.org/campusforum/forum-auth/internal/config"
	"codeberg.org/campusforum/forum-auth/internal/repository"
)

// Result reports what one pass deleted.
type Result struct {
	RunID               string
	LoginAttempts       int64
	VerificationRecords int64
}

// Sweeper deletes rows past their retention period.
type Sweeper struct {
	repo                  *repository.Repository
	now                   func() time.Time
	attemptRetention      time.Duration
	verificationRetention time.Duration
	interval              time.Duration
	queryTimeout          time.Duration
}

// New creates a Sweeper from the auth settings.
func New(repo *repository.Repository, cfg *config.AuthConfig, queryTimeout time.Duration) *Sweeper {
	return &Sweeper{
		repo:                  repo,
		now:                   time.Now,
		attemptRetention:      cfg.AttemptRetention,
		verificationRetention: cfg.VerificationRetention,
		interval:              cfg.SweepInterval,
		queryTimeout:          queryTimeout,
	}
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	now := s.now().UTC()

	n, err := s.step(ctx, func(ctx context.Context) (int64, error) {
		return s.repo.DeleteLoginAttemptsBefore(ctx, s.repo.DB(), now.Add(-s.attemptRetention))
	})
	if err != nil {
		return res, fmt.Errorf("sweep login attempts: %w", err)
	}
	res.LoginAttempts = n

	n, err = s.step(ctx, func(ctx context.Context) (int64, error) {
		return s.repo.DeleteStaleVerifications(ctx, s.repo.DB(), now.Add(-s.verificationRetention))
	})
	if err != nil {
		return res, fmt.Errorf("sweep verifications: %w", err)
	}
	res.VerificationRecords = n

	slog.Info("sweep_complete",
		"run_id", res.RunID,
		"login_attempts", res.LoginAttempts,
		"verifications", res.VerificationRecords,
	)
	return res, nil
}

func (s *Sweeper) step(ctx context.Context, fn func(context.Context) (int64, error)) (int64, error) {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}
	return fn(ctx)
}

// Start sweeps once immediately and then on every interval until ctx is
// cancelled. It blocks; run it in its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		slog.Info("sweeper_disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("sweeper_started", "interval", s.interval)

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Error("sweep_failed", "error", err)
		}

		select {
		case <-ctx.Done():
			slog.Info("sweeper_stopped")
			return
		case <-ticker.C:
		}
	}
}
