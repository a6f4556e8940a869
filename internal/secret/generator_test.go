package secret

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPRange(t *testing.T) {
	g := NewGenerator()

	for i := 0; i < 200; i++ {
		otp, err := g.OTP()
		require.NoError(t, err)
		require.Len(t, otp, 6)

		n, err := strconv.Atoi(otp)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestTokenShape(t *testing.T) {
	g := NewGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := g.Token()
		require.NoError(t, err)
		require.Len(t, token, 64)
		assert.Regexp(t, "^[0-9a-f]{64}$", token)
		assert.False(t, seen[token], "tokens must not repeat")
		seen[token] = true
	}
}
