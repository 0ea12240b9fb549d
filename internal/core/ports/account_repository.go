package ports

import (
	"context"
	"time"

	"github.com/veriflow/accounts-api/internal/core/domain"
)

// AccountRepository defines the persistence contract for accounts.
//
// Every mutation is a single-document atomic update; there is no
// read-modify-write cycle across round trips for the same field. Email
// lookups are case-insensitive.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)

	// SetOTP overwrites the outstanding challenge. Last writer wins: every
	// previously issued code for the account is revoked by construction.
	SetOTP(ctx context.Context, id, code string, expiry time.Time) error

	// ConsumeOTP clears otp/otp_expiry, marks the email verified and stamps
	// last_login in one update.
	ConsumeOTP(ctx context.Context, id string, at time.Time) error

	// SetPassword stores a new credential hash and, in the same update,
	// clears otp/otp_expiry, marks the email verified and stamps last_login.
	SetPassword(ctx context.Context, id, passwordHash string, at time.Time) error

	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*domain.Account, error)
}
