// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package codes generates verification codes and opaque tokens. All output
// comes from crypto/rand.
package codes

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const (
	// NumericLength is the number of digits in a numeric code.
	NumericLength = 6
	// AlphanumericLength is the number of characters in an alphanumeric code.
	AlphanumericLength = 8
	// TokenBytes is the entropy of an opaque token.
	TokenBytes = 32
)

// alphabet for alphanumeric codes (lowercase + digits, excluding confusing chars: 0, o, l, 1).
const alphabet = "23456789abcdefghjkmnpqrstuvwxyz"

// Kind selects the code format sent to users.
type Kind string

const (
	KindNumeric      Kind = "numeric"
	KindAlphanumeric Kind = "alphanumeric"
)

// ParseKind validates a configured code kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindNumeric, KindAlphanumeric:
		return k, nil
	default:
		return "", fmt.Errorf("unknown verification code kind %q", s)
	}
}

// Generator produces codes of one kind.
type Generator struct {
	rand io.Reader
	kind Kind
}

// NewGenerator creates a Generator for kind.
func NewGenerator(kind Kind) *Generator {
	return &Generator{kind: kind, rand: rand.Reader}
}

// Kind returns the configured code kind.
func (g *Generator) Kind() Kind {
	return g.kind
}

// Code returns a new code of the configured kind.
func (g *Generator) Code() (string, error) {
	if g.kind == KindAlphanumeric {
		return fromAlphabet(g.rand, alphabet, AlphanumericLength)
	}
	return fromAlphabet(g.rand, "0123456789", NumericLength)
}

// Token returns a new opaque token.
func (g *Generator) Token() (string, error) {
	return token(g.rand)
}

// NumericCode returns a 6-digit code.
func NumericCode() (string, error) {
	return fromAlphabet(rand.Reader, "0123456789", NumericLength)
}

// AlphanumericCode returns an 8-character code from the unambiguous alphabet.
func AlphanumericCode() (string, error) {
	return fromAlphabet(rand.Reader, alphabet, AlphanumericLength)
}

// OpaqueToken returns 32 random bytes encoded as unpadded base64url.
func OpaqueToken() (string, error) {
	return token(rand.Reader)
}

// Normalize trims whitespace and lowercases user input before comparison.
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// fromAlphabet draws each character uniformly; rand.Int rejection-samples,
// so there is no modulo bias.
func fromAlphabet(r io.Reader, chars string, length int) (string, error) {
	limit := big.NewInt(int64(len(chars)))

	var b strings.Builder
	b.Grow(length)
	for range length {
		n, err := rand.Int(r, limit)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b.WriteByte(chars[n.Int64()])
	}
	return b.String(), nil
}

func token(r io.Reader) (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
