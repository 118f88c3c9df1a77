// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package password hashes and verifies account passwords with Argon2id.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID = "argon2id"

	minMemoryKB    uint32 = 8
	minTime        uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
)

// ErrHashing is returned when a hash cannot be produced or parsed.
var ErrHashing = errors.New("password hashing failed")

// Params are the Argon2id cost parameters.
type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams returns 64 MiB, 3 iterations, parallelism 1.
func DefaultParams() Params {
	return Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate checks the parameters against the minimums.
func (p Params) Validate() error {
	switch {
	case p.Memory < minMemoryKB:
		return fmt.Errorf("argon2 memory must be >= %d KiB", minMemoryKB)
	case p.Time < minTime:
		return fmt.Errorf("argon2 time must be >= %d", minTime)
	case p.Parallelism < minParallelism:
		return fmt.Errorf("argon2 parallelism must be >= %d", minParallelism)
	case p.SaltLength < minSaltLength:
		return fmt.Errorf("argon2 salt length must be >= %d", minSaltLength)
	case p.KeyLength < minKeyLength:
		return fmt.Errorf("argon2 key length must be >= %d", minKeyLength)
	}
	return nil
}

// Hasher hashes and verifies passwords. It is safe for concurrent use.
type Hasher struct {
	rand   io.Reader
	dummy  string
	params Params
}

// NewHasher creates a Hasher with the given parameters.
func NewHasher(params Params) (*Hasher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	h := &Hasher{params: params, rand: rand.Reader}

	dummy, err := h.Hash("not-a-real-password")
	if err != nil {
		return nil, err
	}
	h.dummy = dummy

	return h, nil
}

// Params returns the parameters new hashes are created with.
func (h *Hasher) Params() Params {
	return h.params
}

// Hash returns a PHC-encoded Argon2id hash with a fresh random salt:
// $argon2id$v=19$m=65536,t=3,p=1$<salt>$<key>
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", fmt.Errorf("%w: read salt: %v", ErrHashing, err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. A mismatch is false with
// a nil error; malformed input returns ErrHashing.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	parsed, err := decode(encoded)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(password), parsed.salt, parsed.params.Time, parsed.params.Memory, parsed.params.Parallelism, parsed.params.KeyLength)

	return subtle.ConstantTimeCompare(key, parsed.key) == 1, nil
}

// DummyVerify spends the same work as Verify against a fixed hash, so
// callers can answer "no such account" as slowly as "wrong password".
func (h *Hasher) DummyVerify(password string) {
	_, _ = h.Verify(password, h.dummy)
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters
// than the hasher's current ones.
func (h *Hasher) NeedsUpgrade(encoded string) (bool, error) {
	parsed, err := decode(encoded)
	if err != nil {
		return false, err
	}

	p := parsed.params
	return p.Memory < h.params.Memory ||
		p.Time < h.params.Time ||
		p.Parallelism < h.params.Parallelism ||
		p.KeyLength != h.params.KeyLength, nil
}

type decoded struct {
	salt   []byte
	key    []byte
	params Params
}

func decode(encoded string) (*decoded, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: invalid PHC format", ErrHashing)
	}
	if parts[1] != algorithmID {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrHashing, parts[1])
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") {
		return nil, fmt.Errorf("%w: invalid version", ErrHashing)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrHashing, version)
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Parallelism); err != nil {
		return nil, fmt.Errorf("%w: invalid parameters", ErrHashing)
	}
	if p.Memory < minMemoryKB || p.Time < minTime || p.Parallelism < minParallelism {
		return nil, fmt.Errorf("%w: parameters below minimum", ErrHashing)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, fmt.Errorf("%w: invalid salt", ErrHashing)
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, fmt.Errorf("%w: invalid key", ErrHashing)
	}

	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))

	return &decoded{params: p, salt: salt, key: key}, nil
}
