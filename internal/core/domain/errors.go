package domain

import "errors"

var (
	// ErrInvalidCredentials is deliberately generic: sign-in never reveals
	// which factor was wrong, or whether the account exists at all.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnverified means the password was correct but the email address has
	// not been verified yet; a fresh signup OTP has been issued.
	ErrUnverified = errors.New("email not verified")

	// ErrOTPInvalid covers every failed code check: missing challenge,
	// expired challenge, or wrong code. Callers must not distinguish them.
	ErrOTPInvalid = errors.New("invalid or expired code")

	// ErrSamePassword rejects a password reset whose new password equals the
	// stored credential.
	ErrSamePassword = errors.New("new password must differ from the current password")

	// ErrInvalidInput marks malformed input that slipped past transport
	// validation.
	ErrInvalidInput = errors.New("invalid input")

	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrUnauthorized    = errors.New("invalid or missing session")

	// ErrRandomUnavailable means the secure random source failed; OTP
	// generation never falls back to a non-cryptographic source.
	ErrRandomUnavailable = errors.New("secure random source unavailable")
)
