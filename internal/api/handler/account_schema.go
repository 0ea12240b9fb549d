package handler

import (
	"time"

	"github.com/veriflow/accounts-api/internal/core/domain"
)

// --- Request types ---

type signUpRequest struct {
	Name     string `json:"name"     validate:"required,min=2"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type signInRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp"   validate:"required,len=6,numeric"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"        validate:"required,email"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// --- Response types ---
//
// Responses are owned by the transport layer and deliberately rebuilt from
// the domain account, so the credential hash and the OTP fields can never
// leak through a serializer change.

type accountResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	EmailVerified bool       `json:"email_verified"`
	Role          string     `json:"role"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type sessionResponse struct {
	User accountResponse `json:"user"`
}

type probeResponse struct {
	User *accountResponse `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type accountListResponse struct {
	Accounts []accountResponse `json:"accounts"`
	Total    int               `json:"total"`
}

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:            a.ID,
		Name:          a.Name,
		Email:         a.Email,
		EmailVerified: a.EmailVerified,
		Role:          a.Role,
		LastLogin:     a.LastLogin,
		CreatedAt:     a.CreatedAt,
	}
}

// Canonical bodies for the enumeration-safe endpoints: identical whether or
// not the address is registered.
const (
	genericOTPSentMessage   = "if your email is registered, a code has been sent"
	pendingVerifyMessage    = "account created, check your email for a verification code"
	proceedToPasswordReset  = "code accepted, submit your new password"
	accountDeletedMessage   = "account deleted"
)
