package secret

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// Generator produces the random material used by the credential lifecycle.
// It is an interface so services can be tested with fixed values.
type Generator interface {
	// OTP returns a six digit one-time code in [100000, 999999].
	OTP() (string, error)
	// Token returns 32 random bytes hex-encoded (64 characters).
	Token() (string, error)
}

type cryptoGenerator struct{}

// NewGenerator returns a Generator backed by crypto/rand.
func NewGenerator() Generator {
	return cryptoGenerator{}
}

const (
	otpMin   = 100000
	otpRange = 900000
)

func (cryptoGenerator) OTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpRange))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

func (cryptoGenerator) Token() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
