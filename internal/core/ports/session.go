package ports

import "github.com/veriflow/accounts-api/internal/core/domain"

// Session is the verified identity decoded from a session token.
type Session struct {
	AccountID string
	Email     string
	Name      string
	Role      string
}

// SessionIssuer mints and verifies signed, time-limited session tokens.
type SessionIssuer interface {
	Issue(account *domain.Account) (string, error)
	// Verify returns domain.ErrUnauthorized for any token that fails
	// signature, expiry, or a missing account id claim.
	Verify(token string) (*Session, error)
}
