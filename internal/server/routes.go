// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"github.com/labstack/echo/v4"

	"codeberg.org/campusforum/forum-auth/internal/handlers"
)

func setupRoutes(e *echo.Echo, app *App) {
	h := handlers.New(app.Repo)
	ah := handlers.NewAuth(app.Repo, app.Auth, app.Sessions)

	e.GET("/health", h.Health)

	g := e.Group("/auth")
	g.POST("/signup", ah.Signup)
	g.POST("/verify", ah.Verify)
	g.POST("/resend-verification", ah.ResendVerification)
	g.POST("/login", ah.Login)
	g.POST("/logout", ah.Logout)
	g.GET("/me", ah.Me)
}

// newEcho builds the HTTP router with middleware and routes.
func newEcho(app *App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	setupMiddleware(e, app.Config)
	setupRoutes(e, app)

	return e
}
