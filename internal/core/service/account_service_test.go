package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/veriflow/accounts-api/internal/core/domain"
	"github.com/veriflow/accounts-api/internal/core/ports"
)

type stubLimiter struct {
	allowed bool
	err     error
	calls   int
}

func (l *stubLimiter) Allow(_ context.Context, _, _ string) (bool, error) {
	l.calls++
	return l.allowed, l.err
}

// testAccountService wires the lifecycle service with in-memory
// collaborators and no equalizing delay.
func testAccountService(repo *stubAccountRepo, notifier *stubNotifier, limiter SendLimiter) ports.AccountService {
	verification := NewVerificationService(repo, notifier, 10*time.Minute, zerolog.Nop())
	sessions := NewSessionService("test-secret", time.Hour)
	return NewAccountService(repo, verification, sessions, limiter, -1, zerolog.Nop())
}

func TestAccountService_SignUp_CreatesUnverifiedWithChallenge(t *testing.T) {
	repo := newStubAccountRepo()
	notifier := &stubNotifier{}
	svc := testAccountService(repo, notifier, nil)

	err := svc.SignUp(context.Background(), ports.SignUpInput{
		Name:     "Alice",
		Email:    "Alice@Example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	stored, err := repo.FindByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("expected account stored under the lowercased email: %v", err)
	}
	if stored.EmailVerified {
		t.Fatalf("new accounts start unverified")
	}
	if stored.Role != domain.RoleUser {
		t.Fatalf("expected default role user, got %s", stored.Role)
	}
	if stored.OTP == nil || stored.OTPExpiry == nil {
		t.Fatalf("signup must issue a challenge")
	}
	if stored.PasswordHash == "secret123" {
		t.Fatalf("password must be hashed")
	}
	if notifier.count() != 1 {
		t.Fatalf("expected the challenge mail, got %d sends", notifier.count())
	}
}

func TestAccountService_SignUp_DuplicateEmail(t *testing.T) {
	repo := newStubAccountRepo()
	svc := testAccountService(repo, &stubNotifier{}, nil)

	in := ports.SignUpInput{Name: "Alice", Email: "alice@example.com", Password: "secret123"}
	if err := svc.SignUp(context.Background(), in); err != nil {
		t.Fatalf("first signup failed: %v", err)
	}
	if err := svc.SignUp(context.Background(), in); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAccountService_SignIn_GenericErrorForEveryFactor(t *testing.T) {
	repo := newStubAccountRepo()
	svc := testAccountService(repo, &stubNotifier{}, nil)
	seedAccount(repo, true, "", time.Time{})

	// Unknown account.
	if _, _, err := svc.SignIn(context.Background(), "ghost@example.com", "whatever"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}

	// Wrong password on an existing account: same error.
	if _, _, err := svc.SignIn(context.Background(), "alice@example.com", "wrongpass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("bad password: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAccountService_SignIn_FederatedOnlyAccount(t *testing.T) {
	repo := newStubAccountRepo()
	svc := testAccountService(repo, &stubNotifier{}, nil)
	repo.seed(&domain.Account{
		ID:            "acc_42",
		Email:         "sso@example.com",
		EmailVerified: true,
		Role:          domain.RoleUser,
	})

	if _, _, err := svc.SignIn(context.Background(), "sso@example.com", "any"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for credential-less account, got %v", err)
	}
}

func TestAccountService_SignIn_Success(t *testing.T) {
	repo := newStubAccountRepo()
	svc := testAccountService(repo, &stubNotifier{}, nil)
	seedAccount(repo, true, "", time.Time{})

	token, account, err := svc.SignIn(context.Background(), "ALICE@example.com", "secret123")
	if err != nil {
		t.Fatalf("signin failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a session token")
	}
	if account.LastLogin == nil {
		t.Fatalf("sign-in stamps last_login")
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims["sub"] != "acc_1" || claims["role"] != domain.RoleUser {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAccountService_SignIn_UnverifiedIssuesFreshChallenge(t *testing.T) {
	repo := newStubAccountRepo()
	notifier := &stubNotifier{}
	svc := testAccountService(repo, notifier, nil)
	seedAccount(repo, false, "111111", time.Now().UTC().Add(2*time.Minute))
	before := repo.mustGet(t, "acc_1")

	token, _, err := svc.SignIn(context.Background(), "alice@example.com", "secret123")
	if !errors.Is(err, domain.ErrUnverified) {
		t.Fatalf("expected ErrUnverified, got %v", err)
	}
	if token != "" {
		t.Fatalf("no session for an unverified account")
	}

	after := repo.mustGet(t, "acc_1")
	if !after.OTPExpiry.After(*before.OTPExpiry) {
		t.Fatalf("expected a strictly fresher challenge, %v <= %v", after.OTPExpiry, before.OTPExpiry)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected the re-issued challenge mail")
	}
}

func TestAccountService_VerifySignup_HappyPathThenIdempotentReplay(t *testing.T) {
	repo := newStubAccountRepo()
	notifier := &stubNotifier{}
	svc := testAccountService(repo, notifier, nil)
	seedAccount(repo, false, "123456", time.Now().UTC().Add(5*time.Minute))

	token, account, err := svc.VerifySignup(context.Background(), "alice@example.com", "123456")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if token == "" || !account.EmailVerified {
		t.Fatalf("expected verified account and session, got %v %+v", token, account)
	}

	stored := repo.mustGet(t, "acc_1")
	if stored.OTP != nil || stored.OTPExpiry != nil {
		t.Fatalf("challenge must be consumed")
	}
	sendsAfterFirst := notifier.count()

	// Replaying the same (now consumed) code succeeds via the
	// already-verified guard, with no further state change or mail.
	token2, _, err := svc.VerifySignup(context.Background(), "alice@example.com", "123456")
	if err != nil {
		t.Fatalf("replay must short-circuit to success: %v", err)
	}
	if token2 == "" {
		t.Fatalf("replay still issues a session")
	}
	if notifier.count() != sendsAfterFirst {
		t.Fatalf("replay must not send more mail")
	}
}

func TestAccountService_VerifySignup_UnknownAccount(t *testing.T) {
	repo := newStubAccountRepo()
	svc := testAccountService(repo, &stubNotifier{}, nil)

	if _, _, err := svc.VerifySignup(context.Background(), "ghost@example.com", "123456"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountService_ResendOTP_UnknownEmailIsSilent(t *testing.T) {
	repo := newStubAccountRepo()
	notifier := &stubNotifier{}
	svc := testAccountService(repo, notifier, nil)

	if err := svc.ResendOTP(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("resend must be generic for unknown emails: %v", err)
	}
	if notifier.count() != 0 {
		t.Fatalf("nothing to send for an unknown email")
	}
}

func TestAccountService_ResendOTP_VerifiedAccountIsSilent(t *testing.T) {
	repo := newStubAccountRepo()
	notifier := &stubNotifier{}
	svc := testAccountService(repo, notifier, nil)
	seedAccount(repo, true, "", time.Time{})

	if err := svc.ResendOTP(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("resend failed: %v", err)
	}
	if notifier.count() != 0 {
		t.Fatalf("verified accounts must not receive a signup challenge")
	}
	if stored := repo.mustGet(t, "acc_1"); stored.OTP != nil {
		t.Fatalf("no state change for a verified account")
	}
}

func TestAccountService_ResendOTP_IssuesForUnverified(t *testing.T) {
	repo := newStubAccountRepo()
	notifier := &stubNotifier{}
	svc := testAccountService(repo, notifier, nil)
	seedAccount(repo, false, "", time.Time{})

	if err := svc.ResendOTP(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("resend failed: %v", err)
	}
	if stored := repo.mustGet(t, "acc_1"); stored.OTP == nil {
		t.Fatalf("expected a challenge to be issued")
	}
	if notifier.count() != 1 {
		t.Fatalf("expected the challenge mail")
	}
}

func TestAccountService_ResendOTP_Throttled(t *testing.T) {
	repo := newStubAccountRepo()
	notifier := &stubNotifier{}
	limiter := &stubLimiter{allowed: false}
	svc := testAccountService(repo, notifier, limiter)
	seedAccount(repo, false, "", time.Time{})

	if err := svc.ResendOTP(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("throttled resend must still look generic: %v", err)
	}
	if limiter.calls != 1 {
		t.Fatalf("limiter not consulted")
	}
	if notifier.count() != 0 {
		t.Fatalf("throttled send must not dispatch mail")
	}
}

func TestAccountService_ResendOTP_LimiterErrorDegradesOpen(t *testing.T) {
	repo := newStubAccountRepo()
	notifier := &stubNotifier{}
	limiter := &stubLimiter{err: errors.New("redis down")}
	svc := testAccountService(repo, notifier, limiter)
	seedAccount(repo, false, "", time.Time{})

	if err := svc.ResendOTP(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("resend failed: %v", err)
	}
	if notifier.count() != 1 {
		t.Fatalf("a limiter failure must not block the send")
	}
}

func TestAccountService_ForgotPassword_IssuesRegardlessOfVerification(t *testing.T) {
	repo := newStubAccountRepo()
	notifier := &stubNotifier{}
	svc := testAccountService(repo, notifier, nil)
	seedAccount(repo, true, "", time.Time{})

	if err := svc.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("forgot failed: %v", err)
	}
	if stored := repo.mustGet(t, "acc_1"); stored.OTP == nil {
		t.Fatalf("forgot-password always issues for an existing account")
	}
	if notifier.count() != 1 {
		t.Fatalf("expected the reset mail")
	}
}

func TestAccountService_PasswordResetScenario(t *testing.T) {
	repo := newStubAccountRepo()
	notifier := &stubNotifier{}
	svc := testAccountService(repo, notifier, nil)
	seedAccount(repo, true, "", time.Time{})

	if err := svc.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("forgot failed: %v", err)
	}
	code := *repo.mustGet(t, "acc_1").OTP

	// Step 1: confirm the code; challenge stays set.
	if err := svc.VerifyReset(context.Background(), "alice@example.com", code); err != nil {
		t.Fatalf("verify reset failed: %v", err)
	}
	if stored := repo.mustGet(t, "acc_1"); stored.OTP == nil {
		t.Fatalf("reset confirmation must not consume the challenge")
	}

	// Old password is rejected.
	if _, _, err := svc.ResetPassword(context.Background(), "alice@example.com", "secret123"); !errors.Is(err, domain.ErrSamePassword) {
		t.Fatalf("expected ErrSamePassword, got %v", err)
	}

	// Step 2: store the new password; challenge cleared, session minted.
	token, _, err := svc.ResetPassword(context.Background(), "alice@example.com", "another-secret")
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a session after reset")
	}
	stored := repo.mustGet(t, "acc_1")
	if stored.OTP != nil || stored.OTPExpiry != nil {
		t.Fatalf("challenge must be cleared once the password is stored")
	}

	// The new credential signs in.
	if _, _, err := svc.SignIn(context.Background(), "alice@example.com", "another-secret"); err != nil {
		t.Fatalf("sign-in with new password failed: %v", err)
	}
}

func TestAccountService_DeleteAccount(t *testing.T) {
	repo := newStubAccountRepo()
	svc := testAccountService(repo, &stubNotifier{}, nil)
	seedAccount(repo, true, "", time.Time{})

	if err := svc.DeleteAccount(context.Background(), "acc_1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := svc.DeleteAccount(context.Background(), "acc_1"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound on second delete, got %v", err)
	}
}

func TestAccountService_EqualizeDelayHonorsCancellation(t *testing.T) {
	repo := newStubAccountRepo()
	verification := NewVerificationService(repo, &stubNotifier{}, 10*time.Minute, zerolog.Nop())
	sessions := NewSessionService("test-secret", time.Hour)
	svc := NewAccountService(repo, verification, sessions, nil, 5*time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.ResendOTP(ctx, "ghost@example.com"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
