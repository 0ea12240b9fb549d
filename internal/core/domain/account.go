package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// OTPPurpose disambiguates what an outstanding one-time passcode authorizes.
type OTPPurpose string

const (
	PurposeSignup        OTPPurpose = "signup"
	PurposePasswordReset OTPPurpose = "password_reset"
)

// ChallengeState describes the OTP challenge currently held by an account.
type ChallengeState string

const (
	ChallengeNone        ChallengeState = "none"
	ChallengeOutstanding ChallengeState = "outstanding"
	ChallengeExpired     ChallengeState = "expired"
)

// Account is the core aggregate root: a registered principal identified by
// its email address.
type Account struct {
	ID            string     `json:"id" bson:"_id,omitempty"`
	Name          string     `json:"name" bson:"name"`
	Email         string     `json:"email" bson:"email"`
	PasswordHash  string     `json:"-" bson:"password_hash,omitempty"`
	EmailVerified bool       `json:"email_verified" bson:"email_verified"`
	Role          string     `json:"role" bson:"role"`
	OTP           *string    `json:"-" bson:"otp,omitempty"`
	OTPExpiry     *time.Time `json:"-" bson:"otp_expiry,omitempty"`
	LastLogin     *time.Time `json:"last_login,omitempty" bson:"last_login,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
}

// ChallengeStateAt reports the OTP challenge state at instant now.
// The otp and otp_expiry fields are always set and cleared together, so a
// nil check on either is sufficient.
func (a *Account) ChallengeStateAt(now time.Time) ChallengeState {
	if a.OTP == nil || a.OTPExpiry == nil {
		return ChallengeNone
	}
	if now.After(*a.OTPExpiry) {
		return ChallengeExpired
	}
	return ChallengeOutstanding
}

// OTPMatches reports whether submitted is the outstanding, unexpired code.
// Expiry is strict: a code is expired only once now is past otp_expiry, so
// equality at the boundary instant still validates.
func (a *Account) OTPMatches(submitted string, now time.Time) bool {
	if a.ChallengeStateAt(now) != ChallengeOutstanding {
		return false
	}
	return *a.OTP == submitted
}

// HasCredential reports whether the account can authenticate with a
// password. Federated-only accounts carry no hash.
func (a *Account) HasCredential() bool {
	return a.PasswordHash != ""
}
