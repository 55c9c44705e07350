package session

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accessx/internal/notify"
)

func newTestIssuer(bus notify.Bus) (*Issuer, *MemoryRepo) {
	repo := NewMemoryRepo()
	return NewIssuer(repo, IssuerConfig{Bus: bus, Logger: zerolog.Nop()}), repo
}

func TestCreateSessionCredentials(t *testing.T) {
	issuer, _ := newTestIssuer(nil)
	ctx := context.Background()

	first, err := issuer.CreateSession(ctx, CreateInput{Title: "CS101", Date: "2025-01-10"})
	require.NoError(t, err)
	second, err := issuer.CreateSession(ctx, CreateInput{Title: "CS101", Date: "2025-01-10"})
	require.NoError(t, err)

	assert.NotEmpty(t, first.SessionID)
	assert.GreaterOrEqual(t, len(first.Nonce), 16)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.NotEqual(t, first.Nonce, second.Nonce)
}

func TestCreateSessionValidation(t *testing.T) {
	issuer, _ := newTestIssuer(nil)
	ctx := context.Background()

	cases := []CreateInput{
		{Title: "", Date: "2025-01-10"},
		{Title: "CS101", Date: ""},
		{Title: "   ", Date: "2025-01-10"},
		{Title: "CS101", Date: "Jan 10", StartTime: "09:00"},
		{Title: "CS101", Date: "2025-01-10", StartTime: "9am"},
	}
	for _, in := range cases {
		_, err := issuer.CreateSession(ctx, in)
		assert.ErrorIs(t, err, ErrValidation, "input %+v", in)
	}
}

func TestCreateSessionNormalizesWallet(t *testing.T) {
	issuer, _ := newTestIssuer(nil)

	sess, err := issuer.CreateSession(context.Background(), CreateInput{
		Title: "CS101", Date: "2025-01-10", InstructorWallet: "0xABCDEF0123",
	})
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0123", sess.InstructorWallet)
}

func TestCreateSessionAnnouncesOnBus(t *testing.T) {
	bus := notify.NewInMemory()
	issuer, _ := newTestIssuer(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := bus.Subscribe(ctx, notify.TopicSessionCreated)
	require.NoError(t, err)

	sess, err := issuer.CreateSession(ctx, CreateInput{Title: "CS101", Date: "2025-01-10"})
	require.NoError(t, err)

	select {
	case evt := <-events:
		assert.Contains(t, string(evt.Body), sess.SessionID)
	default:
		t.Fatal("no session event published")
	}
}

func TestMemoryRepoListAndDelete(t *testing.T) {
	issuer, repo := newTestIssuer(nil)
	ctx := context.Background()

	mine, err := issuer.CreateSession(ctx, CreateInput{Title: "Mine", Date: "2025-01-10", InstructorWallet: "0xaaa"})
	require.NoError(t, err)
	_, err = issuer.CreateSession(ctx, CreateInput{Title: "Other", Date: "2025-01-10", InstructorWallet: "0xbbb"})
	require.NoError(t, err)

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	// Newest first.
	assert.Equal(t, "Other", all[0].Title)

	scoped, err := repo.List(ctx, "0xaaa")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, mine.SessionID, scoped[0].SessionID)

	require.NoError(t, repo.Delete(ctx, mine.SessionID))
	_, err = repo.GetByID(ctx, mine.SessionID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, mine.SessionID), ErrNotFound)
}
