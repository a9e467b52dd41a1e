package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestIsBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, isBcryptHash(string(hash)))
	assert.False(t, isBcryptHash("secret123"))
	assert.False(t, isBcryptHash("$2notreally"))
	assert.False(t, isBcryptHash(""))
}

func TestPlaintextAccounts(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	got := plaintextAccounts([]account{
		{id: 1, password: string(hash)},
		{id: 2, password: "secret123"},
		{id: 3, password: "$2dollarsign"},
	})

	ids := make([]int64, 0, len(got))
	for _, a := range got {
		ids = append(ids, a.id)
	}
	assert.Equal(t, []int64{2, 3}, ids)
}

func TestRunRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_LEVEL", "error")

	err := run([]string{"-dry-run"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	assert.Error(t, run([]string{"-no-such-flag"}))
}
