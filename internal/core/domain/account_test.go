package domain

import (
	"testing"
	"time"
)

func challenged(code string, expiry time.Time) *Account {
	return &Account{ID: "acc_1", Email: "a@b.com", OTP: &code, OTPExpiry: &expiry}
}

func TestAccount_ChallengeStateAt(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name    string
		account *Account
		want    ChallengeState
	}{
		{"no challenge", &Account{ID: "acc_1"}, ChallengeNone},
		{"outstanding", challenged("123456", now.Add(time.Minute)), ChallengeOutstanding},
		{"expired", challenged("123456", now.Add(-time.Minute)), ChallengeExpired},
		{"at the boundary instant", challenged("123456", now), ChallengeOutstanding},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.account.ChallengeStateAt(now); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestAccount_OTPMatches(t *testing.T) {
	now := time.Now()

	if !challenged("123456", now.Add(time.Minute)).OTPMatches("123456", now) {
		t.Fatalf("outstanding matching code must validate")
	}
	if challenged("123456", now.Add(time.Minute)).OTPMatches("654321", now) {
		t.Fatalf("wrong code must not validate")
	}
	if challenged("123456", now.Add(-time.Nanosecond)).OTPMatches("123456", now) {
		t.Fatalf("an expired code must not validate even when it matches")
	}
	if (&Account{ID: "acc_1"}).OTPMatches("123456", now) {
		t.Fatalf("an account without a challenge must not validate any code")
	}
}

func TestAccount_HasCredential(t *testing.T) {
	if (&Account{}).HasCredential() {
		t.Fatalf("federated-only accounts carry no credential")
	}
	if !(&Account{PasswordHash: "$2a$10$hash"}).HasCredential() {
		t.Fatalf("a stored hash is a usable credential")
	}
}
