// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"

	"codeberg.org/campusforum/forum-auth/internal/database"
	"codeberg.org/campusforum/forum-auth/internal/server"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: withDB(func(ctx context.Context, cmd *cli.Command, db *sqlx.DB) error {
					return database.RunMigrations(ctx, db)
				}),
			},
			{
				Name:  "down",
				Usage: "Roll back the most recent migration",
				Action: withDB(func(ctx context.Context, cmd *cli.Command, db *sqlx.DB) error {
					return database.MigrateDown(ctx, db)
				}),
			},
			{
				Name:  "reset",
				Usage: "Roll back all migrations",
				Action: withDB(func(ctx context.Context, cmd *cli.Command, db *sqlx.DB) error {
					return database.MigrateReset(ctx, db)
				}),
			},
			{
				Name:  "status",
				Usage: "Show applied and pending migrations",
				Action: withDB(func(ctx context.Context, cmd *cli.Command, db *sqlx.DB) error {
					lines, err := database.MigrationStatus(ctx, db)
					if err != nil {
						return err
					}
					for _, line := range lines {
						_, _ = fmt.Fprintln(cmd.Root().Writer, line)
					}
					return nil
				}),
			},
		},
	}
}

// withDB connects to the configured database without migrating it and
// closes it after fn returns.
func withDB(fn func(ctx context.Context, cmd *cli.Command, db *sqlx.DB) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := server.Load(cmd)
		if err != nil {
			return err
		}

		db, err := database.Connect(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("failed to close database", "error", closeErr)
			}
		}()

		return fn(ctx, cmd, db)
	}
}

func runSweep(ctx context.Context, cmd *cli.Command) error {
	cfg, err := server.Load(cmd)
	if err != nil {
		return err
	}

	app, err := server.NewApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	res, err := app.Sweeper.RunOnce(ctx)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.Root().Writer, "deleted %d login attempts and %d verification records\n",
		res.LoginAttempts, res.VerificationRecords)
	return nil
}
