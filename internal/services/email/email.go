// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers verification codes.
package email

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/wneessen/go-mail"

	"codeberg.org/campusforum/forum-auth/internal/config"
	"codeberg.org/campusforum/forum-auth/internal/i18n"
)

const sendTimeout = 15 * time.Second

// Service sends verification codes over SMTP.
type Service struct {
	cfg *config.SMTPConfig
	now func() time.Time
}

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{cfg: cfg, now: time.Now}, nil
}

// SendVerificationCode mails code to the user, localized to the locale in ctx.
func (s *Service) SendVerificationCode(ctx context.Context, to, username, code string, expiresAt time.Time) error {
	msg, err := s.verificationMessage(ctx, to, username, code, expiresAt)
	if err != nil {
		return err
	}
	return s.send(ctx, msg)
}

func (s *Service) verificationMessage(ctx context.Context, to, username, code string, expiresAt time.Time) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}

	minutes := max(int(math.Ceil(expiresAt.Sub(s.now()).Minutes())), 1)

	msg.Subject(i18n.T(ctx, "email_verification_subject"))
	msg.SetBodyString(mail.TypeTextPlain, i18n.TData(ctx, "email_verification_body", map[string]any{
		"Username": username,
		"Code":     code,
		"Validity": i18n.TPlural(ctx, "code_valid_minutes", minutes),
	}))

	return msg, nil
}

// send delivers msg via SMTP using go-mail.
func (s *Service) send(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(sendTimeout),
	}

	// Use implicit TLS (SSL) for port 465, STARTTLS for others
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
