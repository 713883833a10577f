package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := Hasher{cost: bcrypt.MinCost}

	digest, err := h.Hash("1234")
	require.NoError(t, err)
	assert.NotEqual(t, "1234", digest)

	assert.True(t, h.Verify("1234", digest))
	assert.False(t, h.Verify("4321", digest))
	assert.False(t, h.Verify("", digest))
}

func TestHasher_SaltedDigests(t *testing.T) {
	h := Hasher{cost: bcrypt.MinCost}

	first, err := h.Hash("1234")
	require.NoError(t, err)
	second, err := h.Hash("1234")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("1234", first))
	assert.True(t, h.Verify("1234", second))
}

func TestHasher_VerifyGarbageDigest(t *testing.T) {
	h := Hasher{cost: bcrypt.MinCost}

	assert.False(t, h.Verify("1234", "not-a-bcrypt-digest"))
}
