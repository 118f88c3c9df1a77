// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"codeberg.org/campusforum/forum-auth/internal/i18n"
	"codeberg.org/campusforum/forum-auth/internal/services/auth"
)

// Kinds produced by the HTTP layer itself.
const (
	KindValidationFailed auth.Kind = "VALIDATION_FAILED"
	KindUnauthorized     auth.Kind = "UNAUTHORIZED"
)

// Response is the JSON envelope returned by every /auth endpoint.
type Response struct { //nolint:govet // field order mirrors the wire format
	Success     bool              `json:"success"`
	Data        any               `json:"data,omitempty"`
	Error       auth.Kind         `json:"error,omitempty"`
	Message     string            `json:"message,omitempty"`
	Status      int               `json:"status,omitempty"`
	LockedUntil *time.Time        `json:"lockedUntil,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

var statusByKind = map[auth.Kind]int{
	auth.KindDuplicateEmail:       http.StatusConflict,
	auth.KindDuplicateUsername:    http.StatusConflict,
	auth.KindAccountCreation:      http.StatusInternalServerError,
	auth.KindInvalidOrExpiredCode: http.StatusBadRequest,
	auth.KindAccountLocked:        http.StatusLocked,
	auth.KindInvalidCredentials:   http.StatusUnauthorized,
	auth.KindDeactivatedAccount:   http.StatusForbidden,
	auth.KindUnverifiedEmail:      http.StatusForbidden,
	auth.KindStoreUnavailable:     http.StatusServiceUnavailable,
	auth.KindNotificationFailed:   http.StatusBadGateway,
	KindValidationFailed:          http.StatusBadRequest,
	KindUnauthorized:              http.StatusUnauthorized,
}

// StatusOf returns the HTTP status for an error kind.
func StatusOf(kind auth.Kind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// success writes a successful envelope with a localized message.
func success(c echo.Context, status int, messageID string, data any) error {
	return c.JSON(status, Response{
		Success: true,
		Data:    data,
		Message: i18n.T(c.Request().Context(), "message."+messageID),
	})
}

// failure builds the error envelope for kind. Messages come from the
// translation catalog, never from the error itself.
func failure(c echo.Context, kind auth.Kind) Response {
	status := StatusOf(kind)
	return Response{
		Error:   kind,
		Message: i18n.T(c.Request().Context(), "error."+string(kind)),
		Status:  status,
	}
}

// renderError maps err to its status and writes the error envelope.
func renderError(c echo.Context, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		resp := failure(c, KindValidationFailed)
		resp.Fields = verr.Fields
		return c.JSON(resp.Status, resp)
	}

	kind := auth.KindOf(err)
	resp := failure(c, kind)

	var locked *auth.AccountLockedError
	if errors.As(err, &locked) {
		until := locked.LockedUntil.UTC()
		resp.LockedUntil = &until
	}

	if kind == auth.KindInternal {
		slog.Error("unhandled_error", "path", c.Path(), "error", err)
	}

	return c.JSON(resp.Status, resp)
}

// Kinds for errors raised by routing and middleware.
const (
	KindNotFound         auth.Kind = "NOT_FOUND"
	KindMethodNotAllowed auth.Kind = "METHOD_NOT_ALLOWED"
	KindRequestTooLarge  auth.Kind = "REQUEST_TOO_LARGE"
)

var kindByStatus = map[int]auth.Kind{
	http.StatusBadRequest:            KindValidationFailed,
	http.StatusUnauthorized:          KindUnauthorized,
	http.StatusNotFound:              KindNotFound,
	http.StatusMethodNotAllowed:      KindMethodNotAllowed,
	http.StatusRequestEntityTooLarge: KindRequestTooLarge,
	http.StatusServiceUnavailable:    auth.KindStoreUnavailable,
}

// HTTPErrorHandler renders errors that escape a handler, including panics
// caught by the recover middleware, in the same envelope as handler errors.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	kind := auth.KindInternal

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if k, ok := kindByStatus[status]; ok {
			kind = k
		}
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed", "path", c.Path(), "status", status, "error", err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}

	_ = c.JSON(status, Response{
		Error:   kind,
		Message: i18n.T(c.Request().Context(), "error."+string(kind)),
		Status:  status,
	})
}
