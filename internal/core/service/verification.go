package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/veriflow/accounts-api/internal/core/domain"
	"github.com/veriflow/accounts-api/internal/core/ports"
)

const defaultOTPTTL = 10 * time.Minute

// VerificationService is the OTP state machine: it issues challenges,
// validates and consumes them, and completes password resets.
//
// A challenge lives in the otp/otp_expiry fields of the account document;
// issuing overwrites any prior challenge (last writer wins, earlier codes
// are revoked by construction). The store update is always acknowledged
// before the notification is handed off, so a client can never observe a
// code the store does not yet hold.
type VerificationService struct {
	repo     ports.AccountRepository
	notifier ports.Notifier
	otpTTL   time.Duration
	log      zerolog.Logger
}

func NewVerificationService(repo ports.AccountRepository, notifier ports.Notifier, otpTTL time.Duration, log zerolog.Logger) *VerificationService {
	if otpTTL <= 0 {
		otpTTL = defaultOTPTTL
	}
	return &VerificationService{repo: repo, notifier: notifier, otpTTL: otpTTL, log: log}
}

// Issue generates a fresh code, persists it with its expiry, and dispatches
// the challenge notification. Valid from any challenge state.
func (s *VerificationService) Issue(ctx context.Context, account *domain.Account, purpose domain.OTPPurpose) error {
	code, err := GenerateOTP()
	if err != nil {
		return err
	}

	expiry := time.Now().UTC().Add(s.otpTTL)
	if err := s.repo.SetOTP(ctx, account.ID, code, expiry); err != nil {
		return fmt.Errorf("issue otp: %w", err)
	}

	s.log.Info().
		Str("account_id", account.ID).
		Str("purpose", string(purpose)).
		Time("expiry", expiry).
		Msg("otp issued")

	s.notify(ctx, challengeMessage(account, code, purpose, s.otpTTL))
	return nil
}

// ConfirmSignup consumes a signup challenge: on a match it clears the
// challenge, marks the email verified and stamps last_login in one update,
// then sends the success notification. Any mismatch, missing challenge, or
// expired challenge is domain.ErrOTPInvalid with no state change.
//
// The already-verified short-circuit is the caller's concern; this method
// assumes an unverified account.
func (s *VerificationService) ConfirmSignup(ctx context.Context, account *domain.Account, code string) error {
	now := time.Now().UTC()
	if !account.OTPMatches(code, now) {
		return domain.ErrOTPInvalid
	}

	if err := s.repo.ConsumeOTP(ctx, account.ID, now); err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}

	s.log.Info().Str("account_id", account.ID).Msg("email verified")

	s.notify(ctx, verifiedMessage(account))
	return nil
}

// CheckReset validates a password-reset challenge without consuming it.
// The fields stay set so the client can retry the password step if it
// fails; they are cleared only when CompleteReset stores the new
// credential.
func (s *VerificationService) CheckReset(account *domain.Account, code string) error {
	if !account.OTPMatches(code, time.Now().UTC()) {
		return domain.ErrOTPInvalid
	}
	return nil
}

// CompleteReset stores a new credential, gated by the still-outstanding
// reset challenge. Rejects a new password equal to the current one before
// anything is written.
func (s *VerificationService) CompleteReset(ctx context.Context, account *domain.Account, newPassword string) error {
	now := time.Now().UTC()
	if account.ChallengeStateAt(now) != domain.ChallengeOutstanding {
		return domain.ErrOTPInvalid
	}

	if account.HasCredential() {
		if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(newPassword)) == nil {
			return domain.ErrSamePassword
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.repo.SetPassword(ctx, account.ID, string(hash), now); err != nil {
		return fmt.Errorf("set password: %w", err)
	}

	s.log.Info().Str("account_id", account.ID).Msg("password reset completed")

	s.notify(ctx, passwordChangedMessage(account))
	return nil
}

// notify dispatches a message best-effort: a failed send is logged and
// swallowed so delivery can never fail the surrounding operation.
func (s *VerificationService) notify(ctx context.Context, msg ports.Message) {
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("notification dispatch failed")
	}
}
