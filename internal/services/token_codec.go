package services

import (
	"context"
	"fmt"
	"time"

	"pollbox/internal/domain/poll"
	"pollbox/internal/secrets"
	pollbox_errors "pollbox/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	kindPoll  = "poll"
	kindClose = "close"
)

// PollClaims certify a poll definition exactly as shown to voters. Vote
// admission trusts these claims and never re-reads candidates from storage.
type PollClaims struct {
	Kind         string   `json:"kind"`
	UUID         string   `json:"uuid"`
	Question     string   `json:"question"`
	FreeResponse *bool    `json:"freeResponse"`
	Responses    []string `json:"responses"`
	jwt.RegisteredClaims
}

// CloseClaims authorize closing a poll and reading its tally.
type CloseClaims struct {
	Kind    string     `json:"kind"`
	UUID    string     `json:"uuid"`
	Started *time.Time `json:"started"`
	jwt.RegisteredClaims
}

type CloseGrant struct {
	PollID   uuid.UUID
	IssuedAt time.Time
}

// TokenCodec signs and verifies HS256 poll and close tokens. Tokens carry no
// expiry.
type TokenCodec struct {
	secrets secrets.Provider
}

func NewTokenCodec(provider secrets.Provider) *TokenCodec {
	return &TokenCodec{secrets: provider}
}

func (c *TokenCodec) SignPoll(ctx context.Context, def poll.Definition) (string, error) {
	free := def.FreeResponse
	claims := PollClaims{
		Kind:         kindPoll,
		UUID:         def.ID.String(),
		Question:     def.Question,
		FreeResponse: &free,
	}
	if !def.FreeResponse {
		claims.Responses = def.Responses
	}
	return c.sign(ctx, claims)
}

func (c *TokenCodec) VerifyPoll(ctx context.Context, token string) (poll.Definition, error) {
	var claims PollClaims
	if err := c.parse(ctx, token, &claims); err != nil {
		return poll.Definition{}, err
	}

	id, err := uuid.Parse(claims.UUID)
	if err != nil || claims.Kind != kindPoll || claims.Question == "" || claims.FreeResponse == nil {
		return poll.Definition{}, pollbox_errors.ErrUnauthorized
	}
	def := poll.Definition{
		ID:           id,
		Question:     claims.Question,
		FreeResponse: *claims.FreeResponse,
	}
	if !def.FreeResponse {
		if claims.Responses == nil {
			return poll.Definition{}, pollbox_errors.ErrUnauthorized
		}
		def.Responses = claims.Responses
	}
	return def, nil
}

func (c *TokenCodec) SignClose(ctx context.Context, pollID uuid.UUID, issuedAt time.Time) (string, error) {
	return c.sign(ctx, CloseClaims{
		Kind:    kindClose,
		UUID:    pollID.String(),
		Started: &issuedAt,
	})
}

func (c *TokenCodec) VerifyClose(ctx context.Context, token string) (CloseGrant, error) {
	var claims CloseClaims
	if err := c.parse(ctx, token, &claims); err != nil {
		return CloseGrant{}, err
	}

	id, err := uuid.Parse(claims.UUID)
	if err != nil || claims.Kind != kindClose || claims.Started == nil || claims.Started.IsZero() {
		return CloseGrant{}, pollbox_errors.ErrUnauthorized
	}
	return CloseGrant{PollID: id, IssuedAt: *claims.Started}, nil
}

func (c *TokenCodec) sign(ctx context.Context, claims jwt.Claims) (string, error) {
	secret, err := c.secrets.SigningSecret(ctx)
	if err != nil {
		return "", fmt.Errorf("load signing secret: %w", err)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// parse fails with ErrUnauthorized for anything wrong with the token itself.
// Only a missing signing secret surfaces as a different error.
func (c *TokenCodec) parse(ctx context.Context, tokenString string, claims jwt.Claims) error {
	if tokenString == "" {
		return pollbox_errors.ErrUnauthorized
	}
	secret, err := c.secrets.SigningSecret(ctx)
	if err != nil {
		return fmt.Errorf("load signing secret: %w", err)
	}

	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, pollbox_errors.ErrUnauthorized
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return pollbox_errors.ErrUnauthorized
	}
	return nil
}
