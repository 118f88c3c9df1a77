// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	TLS      TLSConfig
	Session  SessionConfig
	SMTP     SMTPConfig
	Auth     AuthConfig
}

type TLSConfig struct {
	Mode     string // off, manual
	CertFile string // Path to certificate file (manual mode)
	KeyFile  string // Path to private key file (manual mode)
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN          string        // SQLite path or postgres:// URL
	QueryTimeout time.Duration // upper bound for a single store operation
}

type SessionConfig struct { //nolint:govet // fieldalignment not critical
	CookieName string // Session cookie name
	MaxAge     int    // Session max age in seconds
	HashKey    string // 32-byte hex string for HMAC signing
	BlockKey   string // 32-byte hex string for AES encryption (optional)
	Secure     bool   // Secure cookie flag; forced on for https base URLs
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// Enabled reports whether an SMTP relay is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

type AuthConfig struct { //nolint:govet // fieldalignment not critical
	CodeKind              string        // numeric, alphanumeric
	CodeTTL               time.Duration // verification code lifetime
	CodeGrace             time.Duration // extra slack for delivery latency
	CodeMaxAttempts       int           // wrong codes before a record is burned
	LockoutThreshold      int           // failures that lock an email
	LockoutWindow         time.Duration // trailing window for counting failures
	AttemptRetention      time.Duration // login attempts older than this are purged
	VerificationRetention time.Duration // used/expired codes older than this are purged
	SweepInterval         time.Duration // 0 disables the background sweeper
	Argon2Memory          uint32        // KiB
	Argon2Time            uint32
	Argon2Parallelism     uint8
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN:          cmd.String("database-dsn"),
			QueryTimeout: cmd.Duration("database-query-timeout"),
		},
		TLS: TLSConfig{
			Mode:     cmd.String("tls-mode"),
			CertFile: cmd.String("tls-cert-file"),
			KeyFile:  cmd.String("tls-key-file"),
		},
		Session: SessionConfig{
			CookieName: cmd.String("session-cookie-name"),
			MaxAge:     int(cmd.Int("session-max-age")),
			HashKey:    cmd.String("session-hash-key"),
			BlockKey:   cmd.String("session-block-key"),
			Secure:     cmd.Bool("session-secure"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		Auth: AuthConfig{
			CodeKind:              cmd.String("auth-code-kind"),
			CodeTTL:               cmd.Duration("auth-code-ttl"),
			CodeGrace:             cmd.Duration("auth-code-grace"),
			CodeMaxAttempts:       int(cmd.Int("auth-code-max-attempts")),
			LockoutThreshold:      int(cmd.Int("auth-lockout-threshold")),
			LockoutWindow:         cmd.Duration("auth-lockout-window"),
			AttemptRetention:      cmd.Duration("auth-attempt-retention"),
			VerificationRetention: cmd.Duration("auth-verification-retention"),
			SweepInterval:         cmd.Duration("auth-sweep-interval"),
			Argon2Memory:          uint32(cmd.Int("argon2-memory")),     //nolint:gosec // validated by password.NewArgon2
			Argon2Time:            uint32(cmd.Int("argon2-time")),       //nolint:gosec // validated by password.NewArgon2
			Argon2Parallelism:     uint8(cmd.Int("argon2-parallelism")), //nolint:gosec // validated by password.NewArgon2
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	if strings.HasPrefix(cfg.Server.BaseURL, "https://") {
		cfg.Session.Secure = true
	}

	return cfg
}

// Validate checks settings the server cannot start without.
func (c *Config) Validate() error {
	switch strings.ToLower(c.TLS.Mode) {
	case "", "off":
	case "manual":
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return fmt.Errorf("tls mode manual requires tls-cert-file and tls-key-file")
		}
	default:
		return fmt.Errorf("unknown TLS mode: %s", c.TLS.Mode)
	}

	switch c.Auth.CodeKind {
	case "numeric", "alphanumeric":
	default:
		return fmt.Errorf("unknown verification code kind: %s", c.Auth.CodeKind)
	}

	if c.Auth.CodeMaxAttempts < 0 {
		return fmt.Errorf("code max attempts must not be negative")
	}
	if c.Auth.LockoutThreshold < 1 {
		return fmt.Errorf("lockout threshold must be >= 1")
	}
	if c.Auth.LockoutWindow <= 0 || c.Auth.CodeTTL <= 0 {
		return fmt.Errorf("lockout window and code ttl must be positive")
	}

	if c.SMTP.Enabled() && c.SMTP.From == "" {
		return fmt.Errorf("SMTP from address is required when smtp-host is set")
	}

	return nil
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port

	scheme := "http"
	if strings.EqualFold(cfg.TLS.Mode, "manual") {
		scheme = "https"
	}

	// Hide default ports in URL
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for the application",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/forum.db",
			Usage:   "Database DSN (SQLite path or postgres:// URL)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		&cli.DurationFlag{
			Name:    "database-query-timeout",
			Value:   5 * time.Second,
			Usage:   "Timeout for a single store operation",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_QUERY_TIMEOUT"), toml.TOML("database.query_timeout", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-mode",
			Value:   "off",
			Usage:   "TLS mode (off, manual)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_MODE"), toml.TOML("tls.mode", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Path to TLS certificate file (manual mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_FILE"), toml.TOML("tls.cert_file", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Path to TLS private key file (manual mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_KEY_FILE"), toml.TOML("tls.key_file", configFile)),
		},
		// Session flags
		&cli.StringFlag{
			Name:    "session-cookie-name",
			Value:   "_forum_session",
			Usage:   "Session cookie name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_COOKIE_NAME"), toml.TOML("session.cookie_name", configFile)),
		},
		&cli.IntFlag{
			Name:    "session-max-age",
			Value:   604800, // 7 days in seconds
			Usage:   "Session max age in seconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_MAX_AGE"), toml.TOML("session.max_age", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-hash-key",
			Usage:   "Session hash key (32-byte hex, auto-generated if empty in dev)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_HASH_KEY"), toml.TOML("session.hash_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-block-key",
			Usage:   "Session block key for encryption (32-byte hex, optional)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_BLOCK_KEY"), toml.TOML("session.block_key", configFile)),
		},
		&cli.BoolFlag{
			Name:    "session-secure",
			Usage:   "Send the session cookie over HTTPS only",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_SECURE"), toml.TOML("session.secure", configFile)),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP relay host (codes are only logged when empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP relay port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address for verification mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "Campus Forum",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for the SMTP connection",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		// Auth flags
		&cli.StringFlag{
			Name:    "auth-code-kind",
			Value:   "numeric",
			Usage:   "Verification code kind (numeric, alphanumeric)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AUTH_CODE_KIND"), toml.TOML("auth.code_kind", configFile)),
		},
		&cli.DurationFlag{
			Name:    "auth-code-ttl",
			Value:   15 * time.Minute,
			Usage:   "Verification code lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AUTH_CODE_TTL"), toml.TOML("auth.code_ttl", configFile)),
		},
		&cli.DurationFlag{
			Name:    "auth-code-grace",
			Value:   time.Minute,
			Usage:   "Grace period added to the code lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AUTH_CODE_GRACE"), toml.TOML("auth.code_grace", configFile)),
		},
		&cli.IntFlag{
			Name:    "auth-code-max-attempts",
			Value:   5,
			Usage:   "Wrong codes after which a verification code is invalidated",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AUTH_CODE_MAX_ATTEMPTS"), toml.TOML("auth.code_max_attempts", configFile)),
		},
		&cli.IntFlag{
			Name:    "auth-lockout-threshold",
			Value:   5,
			Usage:   "Failed logins within the window that lock an account",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AUTH_LOCKOUT_THRESHOLD"), toml.TOML("auth.lockout_threshold", configFile)),
		},
		&cli.DurationFlag{
			Name:    "auth-lockout-window",
			Value:   30 * time.Minute,
			Usage:   "Trailing window for counting failed logins",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AUTH_LOCKOUT_WINDOW"), toml.TOML("auth.lockout_window", configFile)),
		},
		&cli.DurationFlag{
			Name:    "auth-attempt-retention",
			Value:   90 * 24 * time.Hour,
			Usage:   "How long login attempts are kept",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AUTH_ATTEMPT_RETENTION"), toml.TOML("auth.attempt_retention", configFile)),
		},
		&cli.DurationFlag{
			Name:    "auth-verification-retention",
			Value:   7 * 24 * time.Hour,
			Usage:   "How long used or expired verification codes are kept",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AUTH_VERIFICATION_RETENTION"), toml.TOML("auth.verification_retention", configFile)),
		},
		&cli.DurationFlag{
			Name:    "auth-sweep-interval",
			Value:   time.Hour,
			Usage:   "Interval of the retention sweep (0 disables it)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AUTH_SWEEP_INTERVAL"), toml.TOML("auth.sweep_interval", configFile)),
		},
		&cli.IntFlag{
			Name:    "argon2-memory",
			Value:   64 * 1024,
			Usage:   "Argon2id memory cost in KiB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ARGON2_MEMORY"), toml.TOML("auth.argon2_memory", configFile)),
		},
		&cli.IntFlag{
			Name:    "argon2-time",
			Value:   3,
			Usage:   "Argon2id iterations",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ARGON2_TIME"), toml.TOML("auth.argon2_time", configFile)),
		},
		&cli.IntFlag{
			Name:    "argon2-parallelism",
			Value:   1,
			Usage:   "Argon2id parallelism",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ARGON2_PARALLELISM"), toml.TOML("auth.argon2_parallelism", configFile)),
		},
	}
}
