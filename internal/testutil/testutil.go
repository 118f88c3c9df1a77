// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"codeberg.org/campusforum/forum-auth/internal/database"
	"codeberg.org/campusforum/forum-auth/internal/models"
	"codeberg.org/campusforum/forum-auth/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// Epoch is the fixed "now" used by fixtures and test clocks.
var Epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, repository.New(db)
}

// NewTestFileDB creates a file-backed SQLite database in a temp directory.
// Unlike NewTestDB it allows several connections, so it is the one to use
// for concurrency tests.
func NewTestFileDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, repository.New(db)
}

// NewTestUser creates an active, verified account with a placeholder hash.
func NewTestUser(t *testing.T, repo *repository.Repository, username, email string) *models.User {
	t.Helper()
	user := &models.User{
		Username:      username,
		Email:         email,
		PasswordHash:  "$argon2id$v=19$m=8,t=1,p=1$c2FsdA$aGFzaA",
		EmailVerified: true,
		IsActive:      true,
		CreatedAt:     Epoch,
		UpdatedAt:     Epoch,
	}
	err := repo.CreateUser(context.Background(), repo.DB(), user)
	require.NoError(t, err)
	return user
}

// Clock is a settable clock for services that take a func() time.Time.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at Epoch.
func NewClock() *Clock {
	return &Clock{now: Epoch}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Notification is one message captured by Notifier.
type Notification struct {
	ExpiresAt time.Time
	To        string
	Username  string
	Code      string
}

// Notifier records verification codes instead of sending them.
type Notifier struct {
	Err  error
	sent []Notification
	mu   sync.Mutex
}

// SendVerificationCode records the message and returns n.Err.
func (n *Notifier) SendVerificationCode(_ context.Context, to, username, code string, expiresAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.sent = append(n.sent, Notification{To: to, Username: username, Code: code, ExpiresAt: expiresAt})
	return nil
}

// Sent returns all captured messages.
func (n *Notifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}

// Last returns the most recent message.
func (n *Notifier) Last(t *testing.T) Notification {
	t.Helper()
	sent := n.Sent()
	require.NotEmpty(t, sent, "no notification sent")
	return sent[len(sent)-1]
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewEchoContextWithHeaders creates an Echo context with custom headers.
func NewEchoContextWithHeaders(e *echo.Echo, method, path string, body io.Reader, headers map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}
