// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host     string
		expected bool
	}{
		{"", true},
		{"localhost", true},
		{"127.0.0.1", true},
		{"::1", true},
		{"app.localhost", true},
		{"example.com", false},
		{"192.168.1.1", false},
		{"localhost.com", false}, // not a real localhost
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsLocalhost(tt.host))
		})
	}
}

func TestBuildBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		expected string
	}{
		{
			name: "HTTP default port",
			cfg: &Config{
				Server: ServerConfig{Host: "localhost", Port: 80},
				TLS:    TLSConfig{Mode: "off"},
			},
			expected: "http://localhost",
		},
		{
			name: "HTTP custom port",
			cfg: &Config{
				Server: ServerConfig{Host: "localhost", Port: 8080},
				TLS:    TLSConfig{Mode: "off"},
			},
			expected: "http://localhost:8080",
		},
		{
			name: "manual TLS default port",
			cfg: &Config{
				Server: ServerConfig{Host: "forum.example.edu", Port: 443},
				TLS:    TLSConfig{Mode: "manual"},
			},
			expected: "https://forum.example.edu",
		},
		{
			name: "manual TLS custom port",
			cfg: &Config{
				Server: ServerConfig{Host: "forum.example.edu", Port: 8443},
				TLS:    TLSConfig{Mode: "manual"},
			},
			expected: "https://forum.example.edu:8443",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildBaseURL(tt.cfg))
		})
	}
}

func validConfig() *Config {
	return &Config{
		TLS: TLSConfig{Mode: "off"},
		Auth: AuthConfig{
			CodeKind:         "numeric",
			CodeTTL:          15 * time.Minute,
			LockoutThreshold: 5,
			LockoutWindow:    30 * time.Minute,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"manual TLS without files", func(c *Config) { c.TLS.Mode = "manual" }, "requires tls-cert-file"},
		{"unknown TLS mode", func(c *Config) { c.TLS.Mode = "acme" }, "unknown TLS mode"},
		{"unknown code kind", func(c *Config) { c.Auth.CodeKind = "emoji" }, "unknown verification code kind"},
		{"negative code attempts", func(c *Config) { c.Auth.CodeMaxAttempts = -1 }, "code max attempts"},
		{"zero threshold", func(c *Config) { c.Auth.LockoutThreshold = 0 }, "lockout threshold"},
		{"zero window", func(c *Config) { c.Auth.LockoutWindow = 0 }, "must be positive"},
		{"smtp without from", func(c *Config) { c.SMTP.Host = "smtp.example.edu" }, "SMTP from address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFlags(t *testing.T) {
	flags := Flags()

	assert.NotEmpty(t, flags)

	flagNames := make(map[string]bool)
	for _, f := range flags {
		for _, name := range f.Names() {
			flagNames[name] = true
		}
	}

	for _, name := range []string{
		"host", "port", "base-url", "log-level", "database-dsn", "database-query-timeout",
		"tls-mode", "session-cookie-name", "smtp-host", "auth-lockout-threshold",
		"auth-lockout-window", "auth-code-ttl", "auth-code-max-attempts", "auth-sweep-interval", "argon2-memory",
	} {
		assert.True(t, flagNames[name], "should have %s flag", name)
	}
}

func TestNewFromCLI(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			assert.NotNil(t, cfg)
			assert.Equal(t, "localhost", cfg.Server.Host)
			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
			assert.Equal(t, "info", cfg.Log.Level)
			assert.Equal(t, "_forum_session", cfg.Session.CookieName)
			assert.Equal(t, 604800, cfg.Session.MaxAge) // 7 days in seconds
			assert.False(t, cfg.Session.Secure)
			assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)

			assert.Equal(t, "numeric", cfg.Auth.CodeKind)
			assert.Equal(t, 15*time.Minute, cfg.Auth.CodeTTL)
			assert.Equal(t, time.Minute, cfg.Auth.CodeGrace)
			assert.Equal(t, 5, cfg.Auth.CodeMaxAttempts)
			assert.Equal(t, 5, cfg.Auth.LockoutThreshold)
			assert.Equal(t, 30*time.Minute, cfg.Auth.LockoutWindow)
			assert.Equal(t, 90*24*time.Hour, cfg.Auth.AttemptRetention)
			assert.Equal(t, uint32(65536), cfg.Auth.Argon2Memory)
			assert.Equal(t, uint32(3), cfg.Auth.Argon2Time)
			assert.Equal(t, uint8(1), cfg.Auth.Argon2Parallelism)

			assert.NoError(t, cfg.Validate())
			return nil
		},
	}

	err := app.Run(context.Background(), []string{"test"})
	assert.NoError(t, err)
}

func TestNewFromCLI_WithCustomValues(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			assert.Equal(t, "0.0.0.0", cfg.Server.Host)
			assert.Equal(t, 9000, cfg.Server.Port)
			assert.Equal(t, "https://forum.example.edu", cfg.Server.BaseURL)
			assert.True(t, cfg.Session.Secure, "https base URL forces secure cookies")
			assert.Equal(t, "debug", cfg.Log.Level)
			assert.Equal(t, "./data/test.db", cfg.Database.DSN)
			assert.Equal(t, 3, cfg.Auth.LockoutThreshold)
			assert.Equal(t, 10*time.Minute, cfg.Auth.LockoutWindow)

			return nil
		},
	}

	args := []string{
		"test",
		"--host", "0.0.0.0",
		"--port", "9000",
		"--base-url", "https://forum.example.edu",
		"--log-level", "debug",
		"--database-dsn", "./data/test.db",
		"--auth-lockout-threshold", "3",
		"--auth-lockout-window", "10m",
	}
	err := app.Run(context.Background(), args)
	assert.NoError(t, err)
}
