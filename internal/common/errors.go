// Package common defines shared constants and sentinel errors used across
// the vault server, its transport and the client. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrInternal           = errors.New("internal error")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrTimeout            = errors.New("operation timed out, retry later")
	ErrConfiguration      = errors.New("configuration error")
	ErrValidation         = errors.New("validation error")

	// Authentication errors. Unknown email and wrong password share
	// ErrInvalidCredentials so callers cannot enumerate accounts.
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrAccountLockedAdmin      = errors.New("account is locked by administrator")
	ErrAccountLockedBruteForce = errors.New("account temporarily locked")

	// Session errors.
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionInvalidated = errors.New("session invalidated, please login again")
	ErrUnauthenticated    = errors.New("unauthenticated")

	// Authorization and file-access errors.
	ErrAccessDenied     = errors.New("access denied")
	ErrSelfAction       = errors.New("administrators cannot target their own account")
	ErrBlocked          = errors.New("file is blocked")
	ErrDecryptionFailed = errors.New("decryption failed")
)
