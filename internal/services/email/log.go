// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"log/slog"
	"time"
)

// LogNotifier stands in for SMTP during local development. The code itself
// is only logged at debug level.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier writing to logger, or to the default
// logger when nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// SendVerificationCode logs the issued code instead of sending it.
func (n *LogNotifier) SendVerificationCode(ctx context.Context, to, username, code string, expiresAt time.Time) error {
	n.logger.InfoContext(ctx, "verification_code_issued", "username", username, "expires_at", expiresAt)
	n.logger.DebugContext(ctx, "verification_code", "to", to, "code", code)
	return nil
}
