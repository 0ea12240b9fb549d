package ports

import (
	"context"

	"github.com/veriflow/accounts-api/internal/core/domain"
)

// SignUpInput carries the validated sign-up fields.
type SignUpInput struct {
	Name     string
	Email    string
	Password string
}

// AccountService orchestrates the account lifecycle: registration, sign-in,
// OTP verification for both purposes, password reset, and deletion.
//
// Methods returning a token string mint a session; the transport layer is
// responsible for attaching it as a cookie.
type AccountService interface {
	// SignUp creates an unverified account and issues a signup OTP. No
	// session is minted until verification succeeds.
	SignUp(ctx context.Context, in SignUpInput) error

	// SignIn authenticates by email and password. When the account exists
	// but is unverified it issues a fresh signup OTP and returns
	// domain.ErrUnverified instead of a session.
	SignIn(ctx context.Context, email, password string) (string, *domain.Account, error)

	// VerifySignup consumes a signup OTP and mints a session. Re-verifying
	// an already verified account short-circuits to success.
	VerifySignup(ctx context.Context, email, code string) (string, *domain.Account, error)

	// VerifyReset confirms a password-reset OTP without consuming it; the
	// challenge fields stay set until ResetPassword completes.
	VerifyReset(ctx context.Context, email, code string) error

	// ResetPassword applies a new credential, gated by the still-outstanding
	// reset challenge, and mints a session.
	ResetPassword(ctx context.Context, email, newPassword string) (string, *domain.Account, error)

	// ResendOTP and ForgotPassword are enumeration-safe: they return nil for
	// unknown emails and take an equalizing delay on every call.
	ResendOTP(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error

	// DeleteAccount removes the account named by a verified session's
	// embedded id, never a client-supplied one.
	DeleteAccount(ctx context.Context, accountID string) error

	// Profile returns the account behind a session id, for the session
	// probe. The repository-level account still carries no secrets in its
	// JSON form.
	Profile(ctx context.Context, accountID string) (*domain.Account, error)

	// ListAccounts returns all accounts, for admin use.
	ListAccounts(ctx context.Context) ([]*domain.Account, error)
}
