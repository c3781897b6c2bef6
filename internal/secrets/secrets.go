package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

var ErrEmptySecret = errors.New("signing secret is empty")

// Provider supplies the key material used to sign poll tokens.
type Provider interface {
	SigningSecret(ctx context.Context) ([]byte, error)
}

type ProviderFunc func(ctx context.Context) ([]byte, error)

func (f ProviderFunc) SigningSecret(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

type Static struct {
	secret []byte
}

func NewStatic(secret string) (*Static, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Static{secret: []byte(secret)}, nil
}

func (s *Static) SigningSecret(context.Context) ([]byte, error) {
	return s.secret, nil
}

// FromFile reads the secret from path, trimming surrounding whitespace.
func FromFile(path string) Provider {
	return ProviderFunc(func(context.Context) ([]byte, error) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read secret file: %w", err)
		}
		secret := strings.TrimSpace(string(raw))
		if secret == "" {
			return nil, ErrEmptySecret
		}
		return []byte(secret), nil
	})
}

// Cached loads the secret from p on first use and keeps it. Failed loads are
// retried on the next call.
func Cached(p Provider) Provider {
	return &cached{inner: p}
}

type cached struct {
	inner  Provider
	mu     sync.Mutex
	secret []byte
}

func (c *cached) SigningSecret(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.secret != nil {
		return c.secret, nil
	}
	secret, err := c.inner.SigningSecret(ctx)
	if err != nil {
		return nil, err
	}
	c.secret = secret
	return secret, nil
}
