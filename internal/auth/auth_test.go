package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, expiresAt, err := Issue("0xabc", "accessx", "secret", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := Parse(token, "secret", "accessx")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", claims.Wallet)
	assert.Equal(t, "accessx", claims.Issuer)
}

func TestJWTRejectsWrongKey(t *testing.T) {
	token, _, err := Issue("0xabc", "accessx", "secret", time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, "other-secret", "accessx")
	assert.Error(t, err)
}

func TestJWTRejectsWrongIssuer(t *testing.T) {
	token, _, err := Issue("0xabc", "someone-else", "secret", time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, "secret", "accessx")
	assert.Error(t, err)
}

func TestJWTRejectsExpired(t *testing.T) {
	token, _, err := Issue("0xabc", "accessx", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token, "secret", "accessx")
	assert.Error(t, err)
}

func TestMemoryChallengesOneTimeRedeem(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallenges(time.Minute)

	nonce, err := store.Issue(ctx, "0xABC")
	require.NoError(t, err)
	require.NotEmpty(t, nonce)

	// Lookup normalizes wallet case.
	got, err := store.Redeem(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, nonce, got)

	_, err = store.Redeem(ctx, "0xabc")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestMemoryChallengesExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallenges(time.Minute)
	current := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	_, err := store.Issue(ctx, "0xabc")
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)
	_, err = store.Redeem(ctx, "0xabc")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestMemoryChallengesReissueReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallenges(time.Minute)

	first, err := store.Issue(ctx, "0xabc")
	require.NoError(t, err)
	second, err := store.Issue(ctx, "0xabc")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	got, err := store.Redeem(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, second, got)
}
