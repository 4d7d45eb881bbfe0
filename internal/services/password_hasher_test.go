package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	cases := []struct {
		password string
		other    string
	}{
		{password: "Str0ng!Pass1", other: "Str0ng!Pass2"},
		{password: "Ünïcödé-Päss-9", other: "unicode-pass-9"},
		{password: "aaaaaaaaaaaa", other: "aaaaaaaaaaab"},
	}
	for _, tc := range cases {
		hash, err := hasher.Hash(tc.password)
		require.NoError(t, err)
		assert.NotContains(t, hash, tc.password)
		assert.True(t, hasher.Verify(tc.password, hash))
		assert.False(t, hasher.Verify(tc.other, hash))
	}
}

func TestBcryptHasherUsesConfiguredCost(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost + 1)
	hash, err := hasher.Hash("Str0ng!Pass1")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
}

func TestBcryptHasherDefaultCost(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(0).cost)
	assert.Panics(t, func() { NewBcryptHasher(bcrypt.MaxCost + 1) })
}

func TestBcryptHasherRejectsGarbageHash(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	assert.False(t, hasher.Verify("Str0ng!Pass1", "not-a-hash"))
	assert.False(t, hasher.Verify("Str0ng!Pass1", ""))
}

func TestBcryptHasherTooLong(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	_, err := hasher.Hash(strings.Repeat("a", 73))
	assert.Error(t, err)
}
