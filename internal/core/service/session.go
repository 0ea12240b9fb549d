package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/veriflow/accounts-api/internal/core/domain"
	"github.com/veriflow/accounts-api/internal/core/ports"
)

const defaultSessionTTL = 7 * 24 * time.Hour

// SessionService mints and verifies HS256 session tokens.
type SessionService struct {
	secret []byte
	ttl    time.Duration
}

func NewSessionService(secret string, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionService{secret: []byte(secret), ttl: ttl}
}

// Issue returns a signed token embedding the account's identity and role.
func (s *SessionService) Issue(account *domain.Account) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   account.ID,
		"email": account.Email,
		"name":  account.Name,
		"role":  account.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(s.ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and requires a non-empty account id
// claim. Every failure collapses to domain.ErrUnauthorized.
func (s *SessionService) Verify(token string) (*ports.Session, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, domain.ErrUnauthorized
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, domain.ErrUnauthorized
	}

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	role, _ := claims["role"].(string)

	return &ports.Session{
		AccountID: sub,
		Email:     email,
		Name:      name,
		Role:      role,
	}, nil
}
