package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	password := []byte("secret123")

	hash, err := h.Hash(password)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, string(password), hash)

	assert.NoError(t, h.Compare(hash, password))
	assert.Error(t, h.Compare(hash, []byte("wrong")))
}

func TestHasher_Cost(t *testing.T) {
	assert.Equal(t, DefaultHashCost, NewHasher(0).Cost)
	assert.Equal(t, bcrypt.MinCost, NewHasher(1).Cost)
	assert.Equal(t, bcrypt.MaxCost, NewHasher(99).Cost)
	assert.Equal(t, 12, NewHasher(12).Cost)
}
