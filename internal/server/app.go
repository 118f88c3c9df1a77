// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"
	"log/slog"

	"github.com/vinovest/sqlx"

	"codeberg.org/campusforum/forum-auth/internal/config"
	"codeberg.org/campusforum/forum-auth/internal/database"
	"codeberg.org/campusforum/forum-auth/internal/i18n"
	"codeberg.org/campusforum/forum-auth/internal/repository"
	"codeberg.org/campusforum/forum-auth/internal/services/auth"
	"codeberg.org/campusforum/forum-auth/internal/services/codes"
	"codeberg.org/campusforum/forum-auth/internal/services/email"
	"codeberg.org/campusforum/forum-auth/internal/services/password"
	"codeberg.org/campusforum/forum-auth/internal/services/session"
	"codeberg.org/campusforum/forum-auth/internal/services/sweeper"
)

// App holds the services shared by the HTTP server and the CLI commands.
type App struct {
	Config   *config.Config
	DB       *sqlx.DB
	Repo     *repository.Repository
	Auth     *auth.Service
	Sessions *session.Manager
	Sweeper  *sweeper.Sweeper
}

// NewApp opens the database, applies migrations and builds all services.
func NewApp(cfg *config.Config) (*App, error) {
	if err := i18n.Init(); err != nil {
		return nil, fmt.Errorf("failed to init i18n: %w", err)
	}

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	app, err := newApp(cfg, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(cfg *config.Config, db *sqlx.DB) (*App, error) {
	repo := repository.New(db)

	params := password.DefaultParams()
	params.Memory = cfg.Auth.Argon2Memory
	params.Time = cfg.Auth.Argon2Time
	params.Parallelism = cfg.Auth.Argon2Parallelism
	hasher, err := password.NewHasher(params)
	if err != nil {
		return nil, fmt.Errorf("invalid argon2 parameters: %w", err)
	}

	kind, err := codes.ParseKind(cfg.Auth.CodeKind)
	if err != nil {
		return nil, err
	}

	notifier, err := newNotifier(&cfg.SMTP)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewManager(&cfg.Session, cfg.Session.Secure)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:   cfg,
		DB:       db,
		Repo:     repo,
		Auth:     auth.NewService(repo, hasher, codes.NewGenerator(kind), notifier, &cfg.Auth, cfg.Database.QueryTimeout),
		Sessions: sessions,
		Sweeper:  sweeper.New(repo, &cfg.Auth, cfg.Database.QueryTimeout),
	}, nil
}

func newNotifier(cfg *config.SMTPConfig) (auth.Notifier, error) {
	if !cfg.Enabled() {
		slog.Warn("smtp_disabled", "hint", "verification codes are only written to the debug log")
		return email.NewLogNotifier(nil), nil
	}

	svc, err := email.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure smtp: %w", err)
	}
	return svc, nil
}

// Close releases the database connection.
func (a *App) Close() error {
	return a.DB.Close()
}
