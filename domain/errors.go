package domain

import "errors"

var (
	// ErrAccountNotFound is returned when an account cannot be resolved by
	// id, username or email.
	ErrAccountNotFound = errors.New("account not found")

	// ErrMalformedBlob is returned when a custom attribute blob cannot be
	// decoded. Corruption is surfaced, never silently treated as "no
	// selection", because fail-open on a corrupted blob would bypass the
	// password-change policy.
	ErrMalformedBlob = errors.New("malformed attribute blob")

	// ErrDefinitionNotFound is returned when an attribute definition does
	// not exist. For the RequirePasswordChange definition this means the
	// feature is not provisioned and is not an error condition for login.
	ErrDefinitionNotFound = errors.New("attribute definition not found")

	// ErrSessionNotFound is returned when a session cannot be resolved by
	// token id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidCredentials is returned on a failed authentication attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked is returned when a locked or pending account
	// attempts to authenticate.
	ErrAccountLocked = errors.New("account is locked")
)
