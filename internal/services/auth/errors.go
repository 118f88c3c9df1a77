// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrAccountCreation      = errors.New("account creation failed")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired verification code")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrDeactivatedAccount   = errors.New("account is deactivated")
	ErrUnverifiedEmail      = errors.New("email address is not verified")
	ErrStoreUnavailable     = errors.New("account store unavailable")
	ErrNotificationFailed   = errors.New("verification code could not be delivered")
)

// DuplicateAccountError reports which unique field collided on signup.
type DuplicateAccountError struct {
	Field string // "email" or "username"
}

func (e *DuplicateAccountError) Error() string {
	return fmt.Sprintf("an account with this %s already exists", e.Field)
}

// AccountLockedError is returned while an email is locked out.
type AccountLockedError struct {
	LockedUntil time.Time
}

func (e *AccountLockedError) Error() string {
	return "account temporarily locked until " + e.LockedUntil.Format(time.RFC3339)
}

// Kind is the stable machine-readable name of an auth failure.
type Kind string

const (
	KindDuplicateEmail       Kind = "DUPLICATE_EMAIL"
	KindDuplicateUsername    Kind = "DUPLICATE_USERNAME"
	KindAccountCreation      Kind = "ACCOUNT_CREATION_FAILED"
	KindInvalidOrExpiredCode Kind = "INVALID_OR_EXPIRED_CODE"
	KindAccountLocked        Kind = "ACCOUNT_LOCKED"
	KindInvalidCredentials   Kind = "INVALID_CREDENTIALS"
	KindDeactivatedAccount   Kind = "DEACTIVATED_ACCOUNT"
	KindUnverifiedEmail      Kind = "UNVERIFIED_EMAIL"
	KindStoreUnavailable     Kind = "STORE_UNAVAILABLE"
	KindNotificationFailed   Kind = "NOTIFICATION_FAILED"
	KindInternal             Kind = "INTERNAL_ERROR"
)

// KindOf maps an error returned by Service to its Kind.
func KindOf(err error) Kind {
	var dup *DuplicateAccountError
	if errors.As(err, &dup) {
		if dup.Field == "username" {
			return KindDuplicateUsername
		}
		return KindDuplicateEmail
	}

	var locked *AccountLockedError
	if errors.As(err, &locked) {
		return KindAccountLocked
	}

	for _, m := range []struct {
		err  error
		kind Kind
	}{
		{ErrInvalidOrExpiredCode, KindInvalidOrExpiredCode},
		{ErrInvalidCredentials, KindInvalidCredentials},
		{ErrDeactivatedAccount, KindDeactivatedAccount},
		{ErrUnverifiedEmail, KindUnverifiedEmail},
		{ErrNotificationFailed, KindNotificationFailed},
		{ErrStoreUnavailable, KindStoreUnavailable},
		{ErrAccountCreation, KindAccountCreation},
	} {
		if errors.Is(err, m.err) {
			return m.kind
		}
	}

	return KindInternal
}
