package service

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/veriflow/accounts-api/internal/core/domain"
)

const otpDigits = 6

var otpMax = big.NewInt(1_000_000)

// GenerateOTP returns a zero-padded string of exactly six decimal digits
// drawn uniformly from crypto/rand. There is no fallback to a
// non-cryptographic source: if the random source fails the caller gets
// domain.ErrRandomUnavailable.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpMax)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRandomUnavailable, err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n), nil
}
