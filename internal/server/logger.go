// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"

	"codeberg.org/campusforum/forum-auth/internal/config"
)

// redactedKeys are attribute keys whose values never reach the log output.
var redactedKeys = map[string]bool{
	"password":           true,
	"password_hash":      true,
	"otp":                true,
	"token":              true,
	"verification_token": true,
	"session":            true,
}

// SetupLogger configures the global slog logger.
func SetupLogger(cfg config.LogConfig) {
	slog.SetDefault(newLogger(os.Stdout, cfg.Level, cfg.Format))
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	logLevel := parseLevel(level)

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel, ReplaceAttr: redact})
	} else {
		handler = tint.NewHandler(w, &tint.Options{Level: logLevel, ReplaceAttr: redact, NoColor: !isTerminal(w)})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if redactedKeys[a.Key] {
		return slog.String(a.Key, "[redacted]")
	}
	return a
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
