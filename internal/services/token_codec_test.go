package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pollbox/internal/domain/poll"
	"pollbox/internal/secrets"
	pollbox_errors "pollbox/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, secret string) *TokenCodec {
	t.Helper()
	provider, err := secrets.NewStatic(secret)
	require.NoError(t, err)
	return NewTokenCodec(provider)
}

func TestTokenCodec_PollRoundTrip(t *testing.T) {
	codec := newTestCodec(t, "test-secret")
	ctx := context.Background()

	defs := []poll.Definition{
		{ID: uuid.New(), Question: "Pick a color", Responses: []string{"Red", "Blue"}},
		{ID: uuid.New(), Question: "Tell us something longer than eight chars", FreeResponse: true},
		{ID: uuid.New(), Question: "Unicode ✓ question", Responses: []string{"ä", "ß", "漢字"}},
	}

	for _, def := range defs {
		token, err := codec.SignPoll(ctx, def)
		require.NoError(t, err)

		got, err := codec.VerifyPoll(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, def, got)
	}
}

func TestTokenCodec_CloseRoundTrip(t *testing.T) {
	codec := newTestCodec(t, "test-secret")
	ctx := context.Background()
	id := uuid.New()
	issued := time.Date(2026, 3, 1, 12, 0, 0, 123, time.UTC)

	token, err := codec.SignClose(ctx, id, issued)
	require.NoError(t, err)

	grant, err := codec.VerifyClose(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, id, grant.PollID)
	assert.True(t, issued.Equal(grant.IssuedAt))
}

func TestTokenCodec_RejectsWrongSecret(t *testing.T) {
	ctx := context.Background()
	token, err := newTestCodec(t, "secret-a").SignPoll(ctx, poll.Definition{ID: uuid.New(), Question: "Pick a color", Responses: []string{"Red"}})
	require.NoError(t, err)

	_, err = newTestCodec(t, "secret-b").VerifyPoll(ctx, token)
	assert.ErrorIs(t, err, pollbox_errors.ErrUnauthorized)
}

func TestTokenCodec_RejectsTamperedAndMalformed(t *testing.T) {
	codec := newTestCodec(t, "test-secret")
	ctx := context.Background()
	token, err := codec.SignPoll(ctx, poll.Definition{ID: uuid.New(), Question: "Pick a color", Responses: []string{"Red"}})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	for _, bad := range []string{"", "not-a-jwt", tampered, token + "garbage"} {
		_, err := codec.VerifyPoll(ctx, bad)
		assert.ErrorIs(t, err, pollbox_errors.ErrUnauthorized, bad)
	}
}

func TestTokenCodec_RejectsNoneAlgorithm(t *testing.T) {
	codec := newTestCodec(t, "test-secret")
	free := true
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, PollClaims{
		Kind: kindPoll, UUID: uuid.NewString(), Question: "Pick a color", FreeResponse: &free,
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.VerifyPoll(context.Background(), token)
	assert.ErrorIs(t, err, pollbox_errors.ErrUnauthorized)
}

func TestTokenCodec_RejectsWrongShape(t *testing.T) {
	codec := newTestCodec(t, "test-secret")
	ctx := context.Background()
	id := uuid.New()

	closeToken, err := codec.SignClose(ctx, id, time.Now())
	require.NoError(t, err)
	_, err = codec.VerifyPoll(ctx, closeToken)
	assert.ErrorIs(t, err, pollbox_errors.ErrUnauthorized)

	pollToken, err := codec.SignPoll(ctx, poll.Definition{ID: id, Question: "Pick a color", Responses: []string{"Red"}})
	require.NoError(t, err)
	_, err = codec.VerifyClose(ctx, pollToken)
	assert.ErrorIs(t, err, pollbox_errors.ErrUnauthorized)

	// Signed with the right key but missing the candidate list.
	free := false
	partial, err := codec.sign(ctx, PollClaims{Kind: kindPoll, UUID: id.String(), Question: "Pick a color", FreeResponse: &free})
	require.NoError(t, err)
	_, err = codec.VerifyPoll(ctx, partial)
	assert.ErrorIs(t, err, pollbox_errors.ErrUnauthorized)

	badID, err := codec.sign(ctx, CloseClaims{Kind: kindClose, UUID: "nope", Started: new(time.Time)})
	require.NoError(t, err)
	_, err = codec.VerifyClose(ctx, badID)
	assert.ErrorIs(t, err, pollbox_errors.ErrUnauthorized)
}

func TestTokenCodec_SecretFailureIsNotAuthError(t *testing.T) {
	codec := NewTokenCodec(secrets.ProviderFunc(func(context.Context) ([]byte, error) {
		return nil, errors.New("secret store down")
	}))

	_, err := codec.SignPoll(context.Background(), poll.Definition{ID: uuid.New(), Question: "Pick a color", FreeResponse: true})
	require.Error(t, err)

	_, err = codec.VerifyPoll(context.Background(), "a.b.c")
	require.Error(t, err)
	assert.False(t, errors.Is(err, pollbox_errors.ErrUnauthorized))
}
