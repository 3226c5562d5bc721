package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	id := uuid.New()

	signed, err := tokens.Generate(id)
	require.NoError(t, err)

	got, err := tokens.Check(signed)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestCheckRejectsForeignSecret(t *testing.T) {
	signed, err := NewTokens("secret-a", time.Hour).Generate(uuid.New())
	require.NoError(t, err)

	_, err = NewTokens("secret-b", time.Hour).Check(signed)
	assert.Error(t, err)
}

func TestCheckRejectsExpiredToken(t *testing.T) {
	tokens := NewTokens("test-secret", -time.Minute)
	signed, err := tokens.Generate(uuid.New())
	require.NoError(t, err)

	_, err = tokens.Check(signed)
	assert.Error(t, err)
}

func TestCheckRejectsGarbage(t *testing.T) {
	_, err := NewTokens("test-secret", time.Hour).Check("not-a-token")
	assert.Error(t, err)
}
