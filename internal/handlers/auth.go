// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"codeberg.org/campusforum/forum-auth/internal/repository"
	"codeberg.org/campusforum/forum-auth/internal/services/auth"
	"codeberg.org/campusforum/forum-auth/internal/services/session"
)

// AuthHandlers contains handlers for the /auth endpoints.
type AuthHandlers struct {
	repo     *repository.Repository
	auth     *auth.Service
	sessions *session.Manager
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(repo *repository.Repository, svc *auth.Service, sess *session.Manager) *AuthHandlers {
	return &AuthHandlers{
		repo:     repo,
		auth:     svc,
		sessions: sess,
	}
}

// SignupRequest is the request body for creating an account.
type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// Signup creates an unverified account and sends its verification code.
func (h *AuthHandlers) Signup(c echo.Context) error {
	var req SignupRequest
	if err := bind(c, &req); err != nil {
		return renderError(c, err)
	}

	res, err := h.auth.Signup(c.Request().Context(), auth.SignupParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if errors.Is(err, auth.ErrNotificationFailed) && res != nil {
		resp := failure(c, auth.KindNotificationFailed)
		resp.Data = res
		return c.JSON(resp.Status, resp)
	}
	if err != nil {
		return renderError(c, err)
	}

	return success(c, http.StatusCreated, "signup_success", res)
}

// VerifyRequest is the request body for redeeming a verification code.
type VerifyRequest struct {
	Token string `json:"token" validate:"required,max=128"`
	OTP   string `json:"otp" validate:"required,max=32"`
}

// Verify redeems a verification code.
func (h *AuthHandlers) Verify(c echo.Context) error {
	var req VerifyRequest
	if err := bind(c, &req); err != nil {
		return renderError(c, err)
	}

	res, err := h.auth.Verify(c.Request().Context(), req.Token, req.OTP)
	if err != nil {
		return renderError(c, err)
	}

	return success(c, http.StatusOK, "verify_success", res)
}

// ResendRequest is the request body for requesting a new code.
type ResendRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// ResendVerification issues a new code. The response is the same whether or
// not the address belongs to an unverified account.
func (h *AuthHandlers) ResendVerification(c echo.Context) error {
	var req ResendRequest
	if err := bind(c, &req); err != nil {
		return renderError(c, err)
	}

	res, err := h.auth.ResendVerification(c.Request().Context(), req.Email)
	if err != nil {
		return renderError(c, err)
	}

	return success(c, http.StatusAccepted, "resend_accepted", res)
}

// LoginRequest is the request body for logging in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// Login authenticates the account and sets the session cookie.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return renderError(c, err)
	}

	res, err := h.auth.Login(c.Request().Context(), auth.LoginParams{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return renderError(c, err)
	}

	cookie, err := h.sessions.Create(res.ID, res.Username)
	if err != nil {
		slog.Error("session_create_failed", "user_id", res.ID, "error", err)
		return renderError(c, err)
	}
	c.SetCookie(cookie)

	return success(c, http.StatusOK, "login_success", res)
}

// Logout clears the session cookie.
func (h *AuthHandlers) Logout(c echo.Context) error {
	c.SetCookie(h.sessions.Clear())
	return success(c, http.StatusOK, "logout_success", nil)
}

// AccountResponse holds the public fields of the logged-in account.
type AccountResponse struct {
	LastLogin     *time.Time `json:"lastLogin"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	ID            int64      `json:"id"`
	EmailVerified bool       `json:"emailVerified"`
}

// Me returns the account behind the session cookie. Sessions of accounts
// that were deactivated or removed since login are cleared.
func (h *AuthHandlers) Me(c echo.Context) error {
	data, err := h.sessions.Parse(c.Request())
	if err != nil || data == nil {
		return h.unauthorized(c)
	}

	user, err := h.repo.GetUserByID(c.Request().Context(), h.repo.DB(), data.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return h.unauthorized(c)
	}
	if err != nil {
		slog.Error("session_user_lookup_failed", "user_id", data.UserID, "error", err)
		return renderError(c, auth.ErrStoreUnavailable)
	}

	if !user.CanLogin() {
		return h.unauthorized(c)
	}

	return c.JSON(http.StatusOK, Response{
		Success: true,
		Data: AccountResponse{
			ID:            user.ID,
			Username:      user.Username,
			Email:         user.Email,
			EmailVerified: user.EmailVerified,
			LastLogin:     user.LastLogin(),
		},
	})
}

func (h *AuthHandlers) unauthorized(c echo.Context) error {
	c.SetCookie(h.sessions.Clear())
	resp := failure(c, KindUnauthorized)
	return c.JSON(resp.Status, resp)
}
