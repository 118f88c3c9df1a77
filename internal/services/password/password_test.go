// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package password_test

import (
	"errors"
	"strings"
	"testing"

	"codeberg.org/campusforum/forum-auth/internal/services/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the suite fast
func testParams() password.Params {
	return password.Params{Memory: 64, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func newHasher(t *testing.T) *password.Hasher {
	t.Helper()
	h, err := password.NewHasher(testParams())
	require.NoError(t, err)
	return h
}

func TestDefaultParams(t *testing.T) {
	p := password.DefaultParams()

	assert.Equal(t, uint32(65536), p.Memory)
	assert.Equal(t, uint32(3), p.Time)
	assert.Equal(t, uint8(1), p.Parallelism)
	assert.Equal(t, uint32(16), p.SaltLength)
	assert.Equal(t, uint32(32), p.KeyLength)
	assert.NoError(t, p.Validate())
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*password.Params)
		wantErr string
	}{
		{"memory", func(p *password.Params) { p.Memory = 1 }, "memory"},
		{"time", func(p *password.Params) { p.Time = 0 }, "time"},
		{"parallelism", func(p *password.Params) { p.Parallelism = 0 }, "parallelism"},
		{"salt", func(p *password.Params) { p.SaltLength = 8 }, "salt"},
		{"key", func(p *password.Params) { p.KeyLength = 8 }, "key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.mutate(&p)

			_, err := password.NewHasher(p)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHash_Format(t *testing.T) {
	h := newHasher(t)

	encoded, err := h.Hash("password123")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=64,t=1,p=1$"))
	assert.Len(t, strings.Split(encoded, "$"), 6)
	assert.NotContains(t, encoded, "password123")
}

func TestHash_SaltedPerCall(t *testing.T) {
	h := newHasher(t)

	a, err := h.Hash("password123")
	require.NoError(t, err)
	b, err := h.Hash("password123")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestHash_RandomSourceFailure(t *testing.T) {
	h := newHasher(t)
	h.SetRand(failingReader{})

	_, err := h.Hash("password123")

	assert.ErrorIs(t, err, password.ErrHashing)
}

func TestVerify(t *testing.T) {
	h := newHasher(t)
	encoded, err := h.Hash("password123")
	require.NoError(t, err)

	ok, err := h.Verify("password123", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("password124", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_OtherParams(t *testing.T) {
	weak := newHasher(t)
	encoded, err := weak.Hash("password123")
	require.NoError(t, err)

	p := testParams()
	p.Time = 2
	strong, err := password.NewHasher(p)
	require.NoError(t, err)

	ok, err := strong.Verify("password123", encoded)

	require.NoError(t, err)
	assert.True(t, ok, "verification uses the parameters embedded in the hash")
}

func TestVerify_Malformed(t *testing.T) {
	h := newHasher(t)

	tests := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"bcrypt", "$2a$10$abcdefghijklmnopqrstuv"},
		{"wrong algorithm", "$argon2i$v=19$m=64,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5"},
		{"wrong version", "$argon2id$v=16$m=64,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5"},
		{"bad params", "$argon2id$v=19$m=x,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5"},
		{"bad salt", "$argon2id$v=19$m=64,t=1,p=1$!!!$a2V5"},
		{"missing key", "$argon2id$v=19$m=64,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := h.Verify("password123", tt.encoded)

			assert.False(t, ok)
			assert.ErrorIs(t, err, password.ErrHashing)
		})
	}
}

func TestDummyVerify(t *testing.T) {
	h := newHasher(t)

	assert.NotPanics(t, func() {
		h.DummyVerify("anything")
	})
}

func TestNeedsUpgrade(t *testing.T) {
	weak := newHasher(t)
	encoded, err := weak.Hash("password123")
	require.NoError(t, err)

	upgrade, err := weak.NeedsUpgrade(encoded)
	require.NoError(t, err)
	assert.False(t, upgrade)

	p := testParams()
	p.Memory = 128
	strong, err := password.NewHasher(p)
	require.NoError(t, err)

	upgrade, err = strong.NeedsUpgrade(encoded)
	require.NoError(t, err)
	assert.True(t, upgrade)
}

func TestNeedsUpgrade_Malformed(t *testing.T) {
	h := newHasher(t)

	_, err := h.NeedsUpgrade("garbage")

	assert.ErrorIs(t, err, password.ErrHashing)
}
