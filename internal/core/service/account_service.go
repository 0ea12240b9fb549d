package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/veriflow/accounts-api/internal/core/domain"
	"github.com/veriflow/accounts-api/internal/core/ports"
)

const defaultEqualizeDelay = time.Second

// SendLimiter throttles OTP sends per (purpose, email). A denied send is
// silently absorbed by the enumeration-safe endpoints.
type SendLimiter interface {
	Allow(ctx context.Context, purpose, email string) (bool, error)
}

type accountService struct {
	repo         ports.AccountRepository
	verification *VerificationService
	sessions     ports.SessionIssuer
	limiter      SendLimiter
	equalizeWait time.Duration
	log          zerolog.Logger
}

// NewAccountService returns the lifecycle orchestrator. limiter may be nil
// (no throttling). equalizeWait pads resend/forgot responses; zero means
// the 1s default, negative disables it (tests).
func NewAccountService(
	repo ports.AccountRepository,
	verification *VerificationService,
	sessions ports.SessionIssuer,
	limiter SendLimiter,
	equalizeWait time.Duration,
	log zerolog.Logger,
) ports.AccountService {
	if equalizeWait == 0 {
		equalizeWait = defaultEqualizeDelay
	}
	return &accountService{
		repo:         repo,
		verification: verification,
		sessions:     sessions,
		limiter:      limiter,
		equalizeWait: equalizeWait,
		log:          log,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *accountService) SignUp(ctx context.Context, in ports.SignUpInput) error {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return domain.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	account := &domain.Account{
		Name:          strings.TrimSpace(in.Name),
		Email:         normalizeEmail(in.Email),
		PasswordHash:  string(hash),
		EmailVerified: false,
		Role:          domain.RoleUser,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		return err
	}

	s.log.Info().Str("account_id", created.ID).Msg("account created, pending verification")

	return s.verification.Issue(ctx, created, domain.PurposeSignup)
}

func (s *accountService) SignIn(ctx context.Context, email, password string) (string, *domain.Account, error) {
	account, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	// Federated-only accounts have no credential; same generic error so the
	// response never reveals which factor failed.
	if !account.HasCredential() {
		return "", nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	if !account.EmailVerified {
		if err := s.verification.Issue(ctx, account, domain.PurposeSignup); err != nil {
			return "", nil, err
		}
		return "", nil, domain.ErrUnverified
	}

	now := time.Now().UTC()
	if err := s.repo.TouchLastLogin(ctx, account.ID, now); err != nil {
		return "", nil, err
	}
	account.LastLogin = &now

	token, err := s.sessions.Issue(account)
	if err != nil {
		return "", nil, err
	}

	s.log.Info().Str("account_id", account.ID).Msg("sign-in succeeded")
	return token, account, nil
}

func (s *accountService) VerifySignup(ctx context.Context, email, code string) (string, *domain.Account, error) {
	account, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", nil, err
	}

	// Idempotent re-verification: an already verified account gets a
	// session without any state change or code check.
	if !account.EmailVerified {
		if err := s.verification.ConfirmSignup(ctx, account, code); err != nil {
			return "", nil, err
		}
		now := time.Now().UTC()
		account.EmailVerified = true
		account.OTP = nil
		account.OTPExpiry = nil
		account.LastLogin = &now
		account.UpdatedAt = now
	}

	token, err := s.sessions.Issue(account)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

func (s *accountService) VerifyReset(ctx context.Context, email, code string) error {
	account, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	return s.verification.CheckReset(account, code)
}

func (s *accountService) ResetPassword(ctx context.Context, email, newPassword string) (string, *domain.Account, error) {
	if newPassword == "" {
		return "", nil, domain.ErrInvalidInput
	}

	account, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", nil, err
	}

	if err := s.verification.CompleteReset(ctx, account, newPassword); err != nil {
		return "", nil, err
	}

	now := time.Now().UTC()
	account.EmailVerified = true
	account.OTP = nil
	account.OTPExpiry = nil
	account.LastLogin = &now
	account.UpdatedAt = now

	token, err := s.sessions.Issue(account)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

func (s *accountService) ResendOTP(ctx context.Context, email string) error {
	s.requestOTP(ctx, email, domain.PurposeSignup)
	return s.equalize(ctx)
}

func (s *accountService) ForgotPassword(ctx context.Context, email string) error {
	s.requestOTP(ctx, email, domain.PurposePasswordReset)
	return s.equalize(ctx)
}

// requestOTP is the enumeration-safe issue path shared by resend and
// forgot-password. Every outcome is absorbed: the caller responds with the
// same generic message whether the account exists, is throttled, or the
// issue itself failed.
func (s *accountService) requestOTP(ctx context.Context, email string, purpose domain.OTPPurpose) {
	email = normalizeEmail(email)

	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			s.log.Error().Err(err).Str("purpose", string(purpose)).Msg("otp request lookup failed")
		}
		return
	}

	// Re-sending a signup challenge to a verified account would leak state
	// and re-open "unverified" semantics; forgot-password never
	// short-circuits on verification state.
	if purpose == domain.PurposeSignup && account.EmailVerified {
		return
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, string(purpose), email)
		if err != nil {
			s.log.Warn().Err(err).Msg("send limiter check failed, sending anyway")
		} else if !allowed {
			s.log.Info().Str("account_id", account.ID).Str("purpose", string(purpose)).Msg("otp send throttled")
			return
		}
	}

	if err := s.verification.Issue(ctx, account, purpose); err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("otp issue failed")
	}
}

// equalize pads the response with a fixed delay so the caller's timing does
// not disclose whether any work happened.
func (s *accountService) equalize(ctx context.Context) error {
	if s.equalizeWait <= 0 {
		return nil
	}
	t := time.NewTimer(s.equalizeWait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *accountService) DeleteAccount(ctx context.Context, accountID string) error {
	if err := s.repo.Delete(ctx, accountID); err != nil {
		return err
	}
	s.log.Info().Str("account_id", accountID).Msg("account deleted")
	return nil
}

func (s *accountService) Profile(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.repo.FindByID(ctx, accountID)
}

func (s *accountService) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	return s.repo.List(ctx)
}
