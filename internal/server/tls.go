// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"crypto/sha256"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"codeberg.org/campusforum/forum-auth/internal/config"
)

// SetupTLS returns the TLS configuration for the server, or nil when TLS is
// off. Certificates are provided by the operator; the service usually sits
// behind a terminating proxy.
func SetupTLS(cfg *config.Config) (*tls.Config, error) {
	switch strings.ToLower(cfg.TLS.Mode) {
	case "", "off":
		slog.Info("TLS mode: off")
		return nil, nil
	case "manual":
		slog.Info("TLS mode: manual",
			"cert", cfg.TLS.CertFile,
			"key", cfg.TLS.KeyFile,
		)
		return setupManual(cfg)
	default:
		return nil, fmt.Errorf("unknown TLS mode: %s", cfg.TLS.Mode)
	}
}

// setupManual loads user-provided certificate files.
func setupManual(cfg *config.Config) (*tls.Config, error) {
	certFile := cfg.TLS.CertFile
	keyFile := cfg.TLS.KeyFile

	if certFile == "" || keyFile == "" {
		return nil, fmt.Errorf("manual TLS mode requires both cert-file and key-file")
	}

	if _, err := os.Stat(certFile); err != nil {
		return nil, fmt.Errorf("certificate file not found: %w", err)
	}
	if _, err := os.Stat(keyFile); err != nil {
		return nil, fmt.Errorf("key file not found: %w", err)
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	slog.Info("certificate_fingerprint", "sha256", fingerprint(&cert))

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// fingerprint formats the SHA256 of the leaf certificate as colon-separated hex.
func fingerprint(cert *tls.Certificate) string {
	if len(cert.Certificate) == 0 {
		return ""
	}
	sum := sha256.Sum256(cert.Certificate[0])
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}
