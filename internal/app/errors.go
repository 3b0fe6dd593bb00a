package app

import "errors"

var (
	// ErrEmailTaken signals a registration attempt with a known email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials signals a failed login or password check.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound signals an operation against an unknown account.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound covers both absent sessions and sessions owned by
	// another user; ownership mismatches must not leak existence.
	ErrSessionNotFound = errors.New("session not found")
	// ErrAnalysisNotFound signals a report request for an unknown record.
	ErrAnalysisNotFound = errors.New("analysis not found")
	// ErrResetTokenInvalid signals an unknown or expired reset token.
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
)
