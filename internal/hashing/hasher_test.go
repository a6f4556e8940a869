package hashing

import (
	"strings"
	"testing"

	"account-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHasher() *Hasher {
	cfg := &config.Config{}
	cfg.Hashing = config.HashingConfig{
		ArgonMemory:      16 * 1024,
		ArgonIterations:  1,
		ArgonParallelism: 1,
		SaltLength:       16,
		KeyLength:        32,
	}
	return NewHasher(cfg)
}

func TestHashAndVerify(t *testing.T) {
	h := testHasher()

	encoded, err := h.Hash("s3cret-password")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	ok, err := h.Verify("s3cret-password", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong-password", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	h := testHasher()

	first, err := h.Hash("same-password")
	require.NoError(t, err)
	second, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	h := testHasher()

	cases := []string{
		"",
		"not-a-hash",
		"$argon2i$v=19$m=16384,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=16384,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=16384,t=1,p=1$!!!$aGFzaA",
	}

	for _, encoded := range cases {
		_, err := h.Verify("anything", encoded)
		assert.Error(t, err, "encoded=%q", encoded)
	}
}
