// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"codeberg.org/campusforum/forum-auth/internal/models"
	"codeberg.org/campusforum/forum-auth/internal/repository"
	"codeberg.org/campusforum/forum-auth/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

func TestNew(t *testing.T) {
	db, repo := testutil.NewTestDB(t)

	assert.NotNil(t, repo)
	assert.Same(t, db, repo.DB())
}

func TestPing(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	assert.NoError(t, repo.Ping(context.Background()))
}

func TestPing_Closed(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	require.NoError(t, db.Close())

	err := repo.Ping(context.Background())

	require.Error(t, err)
}

func TestWithTx_Commit(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	err := repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		return repo.CreateUser(ctx, tx, newUser("ada", "ada@uni.edu"))
	})
	require.NoError(t, err)

	_, err = repo.GetUserByEmail(ctx, repo.DB(), "ada@uni.edu")
	assert.NoError(t, err)
}

func TestWithTx_RollbackOnError(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		require.NoError(t, repo.CreateUser(ctx, tx, newUser("ada", "ada@uni.edu")))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.GetUserByEmail(ctx, repo.DB(), "ada@uni.edu")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = repo.WithTx(ctx, func(tx *sqlx.Tx) error {
			require.NoError(t, repo.CreateUser(ctx, tx, newUser("ada", "ada@uni.edu")))
			panic("boom")
		})
	})

	_, err := repo.GetUserByEmail(ctx, repo.DB(), "ada@uni.edu")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWithTx_RollbackOnCancel(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		require.NoError(t, repo.CreateUser(ctx, tx, newUser("ada", "ada@uni.edu")))
		cancel()
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, repository.KindUnavailable, repository.KindOf(err))

	_, err = repo.GetUserByEmail(context.Background(), repo.DB(), "ada@uni.edu")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, repository.KindInternal, repository.KindOf(errors.New("plain")))
	assert.Equal(t, repository.KindNotFound, repository.KindOf(&repository.Error{Kind: repository.KindNotFound, Err: errors.New("x")}))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "not_found", repository.KindNotFound.String())
	assert.Equal(t, "duplicate", repository.KindDuplicate.String())
	assert.Equal(t, "unavailable", repository.KindUnavailable.String())
	assert.Equal(t, "internal", repository.KindInternal.String())
}

func TestQueryTimeout_IsUnavailable(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := repo.GetUserByEmail(ctx, repo.DB(), "ada@uni.edu")

	require.Error(t, err)
	assert.Equal(t, repository.KindUnavailable, repository.KindOf(err))
}

func newUser(username, email string) *models.User {
	return &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
		IsActive:     true,
		CreatedAt:    testutil.Epoch,
		UpdatedAt:    testutil.Epoch,
	}
}
