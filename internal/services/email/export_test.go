// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"time"

	"github.com/wneessen/go-mail"
)

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) VerificationMessage(ctx context.Context, to, username, code string, expiresAt time.Time) (*mail.Msg, error) {
	return s.verificationMessage(ctx, to, username, code, expiresAt)
}
