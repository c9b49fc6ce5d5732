package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewPasswordHasher(t *testing.T) {
	t.Run("rejects cost below minimum", func(t *testing.T) {
		h, err := NewPasswordHasher(bcrypt.MinCost - 1)
		assert.Error(t, err)
		assert.Nil(t, h)
	})

	t.Run("rejects cost above maximum", func(t *testing.T) {
		h, err := NewPasswordHasher(bcrypt.MaxCost + 1)
		assert.Error(t, err)
		assert.Nil(t, h)
		assert.Contains(t, err.Error(), "out of range")
	})

	t.Run("accepts minimum cost", func(t *testing.T) {
		h, err := NewPasswordHasher(bcrypt.MinCost)
		require.NoError(t, err)
		assert.NotNil(t, h)
	})
}

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := h.Hash("Secr3t!pass")
	require.NoError(t, err)
	assert.NotEqual(t, "Secr3t!pass", hash)

	assert.True(t, h.Verify("Secr3t!pass", hash))
	assert.False(t, h.Verify("wrong", hash))
	assert.False(t, h.Verify("Secr3t!pass", "not-a-hash"))

	again, err := h.Hash("Secr3t!pass")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes must be salted")

	assert.False(t, h.VerifyDummy("Secr3t!pass"))
}
