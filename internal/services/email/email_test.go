// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email_test

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"codeberg.org/campusforum/forum-auth/internal/config"
	"codeberg.org/campusforum/forum-auth/internal/i18n"
	"codeberg.org/campusforum/forum-auth/internal/services/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"golang.org/x/text/language"
)

func validSMTPConfig() *config.SMTPConfig {
	return &config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "testuser",
		Password: "testpass",
		From:     "noreply@example.com",
		FromName: "Campus Forum",
		TLS:      true,
	}
}

func TestNewService(t *testing.T) {
	svc, err := email.NewService(validSMTPConfig())

	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestNewService_MissingHost(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.Host = ""

	_, err := email.NewService(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP host is required")
}

func TestNewService_MissingFrom(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.From = ""

	_, err := email.NewService(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP from address is required")
}

func TestVerificationMessage(t *testing.T) {
	require.NoError(t, i18n.Init())
	svc, err := email.NewService(validSMTPConfig())
	require.NoError(t, err)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return now })
	ctx := i18n.WithLocale(context.Background(), language.English)

	msg, err := svc.VerificationMessage(ctx, "alice@x.edu", "alice", "482913", now.Add(16*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, []string{"Your Campus Forum verification code"}, msg.GetGenHeader(mail.HeaderSubject))

	to, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@x.edu"}, to)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "482913")
	assert.Contains(t, buf.String(), "Hi alice")
	assert.Contains(t, buf.String(), "16 minutes")
}

func TestVerificationMessage_German(t *testing.T) {
	require.NoError(t, i18n.Init())
	svc, err := email.NewService(validSMTPConfig())
	require.NoError(t, err)
	ctx := i18n.WithLocale(context.Background(), language.German)

	msg, err := svc.VerificationMessage(ctx, "bob@x.edu", "bob", "111222", time.Now().Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, []string{"Dein Campus-Forum-Bestätigungscode"}, msg.GetGenHeader(mail.HeaderSubject))
}

func TestVerificationMessage_InvalidRecipient(t *testing.T) {
	require.NoError(t, i18n.Init())
	svc, err := email.NewService(validSMTPConfig())
	require.NoError(t, err)

	_, err = svc.VerificationMessage(context.Background(), "not an address", "x", "123456", time.Now())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "setting to address")
}

func TestSendVerificationCode_Unreachable(t *testing.T) {
	require.NoError(t, i18n.Init())

	// a port nothing listens on
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	cfg := validSMTPConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = port
	cfg.TLS = false
	svc, err := email.NewService(cfg)
	require.NoError(t, err)

	err = svc.SendVerificationCode(context.Background(), "alice@x.edu", "alice", "123456", time.Now().Add(time.Minute))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sending email")
}

func TestLogNotifier_CodeOnlyAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	n := email.NewLogNotifier(logger)

	err := n.SendVerificationCode(context.Background(), "alice@x.edu", "alice", "482913", time.Now())

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "verification_code_issued")
	assert.NotContains(t, buf.String(), "482913")
}

func TestLogNotifier_Debug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	n := email.NewLogNotifier(logger)

	err := n.SendVerificationCode(context.Background(), "alice@x.edu", "alice", "482913", time.Now())

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "482913")
}
