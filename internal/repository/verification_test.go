// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/campusforum/forum-auth/internal/models"
	"codeberg.org/campusforum/forum-auth/internal/repository"
	"codeberg.org/campusforum/forum-auth/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

func newVerification(email, token string, expiresAt time.Time) *models.Verification {
	return &models.Verification{
		Email:     email,
		Token:     token,
		OTP:       "123456",
		ExpiresAt: expiresAt,
		CreatedAt: testutil.Epoch,
		UpdatedAt: testutil.Epoch,
	}
}

func TestCreateVerification(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	v := newVerification("ada@uni.edu", "tok-1", testutil.Epoch.Add(15*time.Minute))

	err := repo.CreateVerification(ctx, repo.DB(), v)

	require.NoError(t, err)
	assert.NotZero(t, v.ID)
}

func TestCreateVerification_DuplicateToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateVerification(ctx, repo.DB(), newVerification("a@uni.edu", "tok", testutil.Epoch.Add(time.Hour))))

	err := repo.CreateVerification(ctx, repo.DB(), newVerification("b@uni.edu", "tok", testutil.Epoch.Add(time.Hour)))

	assert.Equal(t, repository.KindDuplicate, repository.KindOf(err))
}

func TestInvalidateVerifications(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	expiry := testutil.Epoch.Add(15 * time.Minute)
	require.NoError(t, repo.CreateVerification(ctx, repo.DB(), newVerification("ada@uni.edu", "tok-1", expiry)))
	require.NoError(t, repo.CreateVerification(ctx, repo.DB(), newVerification("ada@uni.edu", "tok-2", expiry)))
	require.NoError(t, repo.CreateVerification(ctx, repo.DB(), newVerification("other@uni.edu", "tok-3", expiry)))

	n, err := repo.InvalidateVerifications(ctx, repo.DB(), "ada@uni.edu", testutil.Epoch)

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	live, err := repo.CountLiveVerifications(ctx, repo.DB(), "ada@uni.edu", testutil.Epoch)
	require.NoError(t, err)
	assert.Zero(t, live)

	live, err = repo.CountLiveVerifications(ctx, repo.DB(), "other@uni.edu", testutil.Epoch)
	require.NoError(t, err)
	assert.Equal(t, 1, live)
}

func TestCountLiveVerifications_IgnoresExpired(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateVerification(ctx, repo.DB(), newVerification("ada@uni.edu", "tok-1", testutil.Epoch)))

	live, err := repo.CountLiveVerifications(ctx, repo.DB(), "ada@uni.edu", testutil.Epoch)

	require.NoError(t, err)
	assert.Zero(t, live)
}

func TestLockVerificationByToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	created := newVerification("ada@uni.edu", "tok-1", testutil.Epoch.Add(15*time.Minute))
	require.NoError(t, repo.CreateVerification(ctx, repo.DB(), created))

	var got *models.Verification
	err := repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		got, err = repo.LockVerificationByToken(ctx, tx, "tok-1", testutil.Epoch)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "123456", got.OTP)
	assert.False(t, got.Used)
	assert.True(t, got.ExpiresAt.Equal(created.ExpiresAt))
}

func TestLockVerificationByToken_Misses(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	expiry := testutil.Epoch.Add(15 * time.Minute)
	require.NoError(t, repo.CreateVerification(ctx, repo.DB(), newVerification("ada@uni.edu", "live", expiry)))
	used := newVerification("ada@uni.edu", "used", expiry)
	require.NoError(t, repo.CreateVerification(ctx, repo.DB(), used))
	require.NoError(t, repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		return repo.ConsumeVerification(ctx, tx, used.ID, testutil.Epoch)
	}))

	tests := []struct {
		name  string
		token string
		now   time.Time
	}{
		{"unknown token", "nope", testutil.Epoch},
		{"used", "used", testutil.Epoch},
		{"at expiry", "live", expiry},
		{"after expiry", "live", expiry.Add(time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.WithTx(ctx, func(tx *sqlx.Tx) error {
				_, err := repo.LockVerificationByToken(ctx, tx, tt.token, tt.now)
				return err
			})
			assert.ErrorIs(t, err, repository.ErrNotFound)
		})
	}
}

func TestConsumeVerification_OnlyOnce(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	v := newVerification("ada@uni.edu", "tok-1", testutil.Epoch.Add(15*time.Minute))
	require.NoError(t, repo.CreateVerification(ctx, repo.DB(), v))

	err := repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		return repo.ConsumeVerification(ctx, tx, v.ID, testutil.Epoch)
	})
	require.NoError(t, err)

	err = repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		return repo.ConsumeVerification(ctx, tx, v.ID, testutil.Epoch)
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIncrementVerificationAttempts(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	v := newVerification("ada@uni.edu", "tok-1", testutil.Epoch.Add(15*time.Minute))
	require.NoError(t, repo.CreateVerification(ctx, repo.DB(), v))

	var counts []int
	for range 2 {
		err := repo.WithTx(ctx, func(tx *sqlx.Tx) error {
			n, err := repo.IncrementVerificationAttempts(ctx, tx, v.ID, testutil.Epoch)
			counts = append(counts, n)
			return err
		})
		require.NoError(t, err)
	}
	assert.Equal(t, []int{1, 2}, counts)

	list, err := repo.ListVerifications(ctx, repo.DB(), "ada@uni.edu")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Attempts)
}

func TestIncrementVerificationAttempts_UsedRecord(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	v := newVerification("ada@uni.edu", "tok-1", testutil.Epoch.Add(15*time.Minute))
	require.NoError(t, repo.CreateVerification(ctx, repo.DB(), v))

	err := repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := repo.ConsumeVerification(ctx, tx, v.ID, testutil.Epoch); err != nil {
			return err
		}
		_, err := repo.IncrementVerificationAttempts(ctx, tx, v.ID, testutil.Epoch)
		return err
	})

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListVerifications(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	expiry := testutil.Epoch.Add(15 * time.Minute)
	require.NoError(t, repo.CreateVerification(ctx, repo.DB(), newVerification("ada@uni.edu", "tok-1", expiry)))
	require.NoError(t, repo.CreateVerification(ctx, repo.DB(), newVerification("ada@uni.edu", "tok-2", expiry)))

	list, err := repo.ListVerifications(ctx, repo.DB(), "ada@uni.edu")

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "tok-2", list[0].Token)
}

func TestDeleteStaleVerifications(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	cutoff := testutil.Epoch.Add(-7 * 24 * time.Hour)

	// expired long ago
	require.NoError(t, repo.CreateVerification(ctx, repo.DB(), newVerification("a@uni.edu", "old", cutoff.Add(-time.Hour))))
	// expired recently
	require.NoError(t, repo.CreateVerification(ctx, repo.DB(), newVerification("b@uni.edu", "recent", testutil.Epoch.Add(-time.Hour))))
	// live
	require.NoError(t, repo.CreateVerification(ctx, repo.DB(), newVerification("c@uni.edu", "live", testutil.Epoch.Add(time.Hour))))

	n, err := repo.DeleteStaleVerifications(ctx, repo.DB(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err := repo.ListVerifications(ctx, repo.DB(), "a@uni.edu")
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = repo.ListVerifications(ctx, repo.DB(), "b@uni.edu")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
