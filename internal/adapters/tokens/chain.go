package tokens

import (
	"context"
	"errors"
	"fmt"

	"github.com/ldeneuve/felicare/internal/ports"
)

// Chain tries a primary backend and falls back to a second one.
// Context cancellation is never retried against the fallback.
type Chain struct {
	primary  ports.TokenStore
	fallback ports.TokenStore
}

var _ ports.TokenStore = (*Chain)(nil)

func NewChain(primary ports.TokenStore, fallback ports.TokenStore) (*Chain, error) {
	if primary == nil {
		return nil, errors.New("primary token store is nil")
	}
	if fallback == nil {
		return nil, errors.New("fallback token store is nil")
	}
	return &Chain{primary: primary, fallback: fallback}, nil
}

// NewDefault is the standard setup: pass when installed, files under
// fileRoot otherwise.
func NewDefault(fileRoot string) (*Chain, error) {
	return NewChain(NewPassStore(), NewFileStore(fileRoot))
}

func (c *Chain) Put(ctx context.Context, key string, value string) error {
	err := c.primary.Put(ctx, key, value)
	if err == nil || skipFallback(err) {
		return err
	}

	if fallbackErr := c.fallback.Put(ctx, key, value); fallbackErr != nil {
		return fmt.Errorf("primary put failed: %w; fallback put failed: %w", err, fallbackErr)
	}
	return nil
}

func (c *Chain) Get(ctx context.Context, key string) (string, error) {
	value, err := c.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if skipFallback(err) {
		return "", err
	}

	fallbackValue, fallbackErr := c.fallback.Get(ctx, key)
	if fallbackErr != nil {
		return "", fmt.Errorf("primary get failed: %w; fallback get failed: %w", err, fallbackErr)
	}
	return fallbackValue, nil
}

func (c *Chain) Delete(ctx context.Context, key string) error {
	err := c.primary.Delete(ctx, key)
	if err == nil || skipFallback(err) {
		return err
	}

	if fallbackErr := c.fallback.Delete(ctx, key); fallbackErr != nil {
		return fmt.Errorf("primary delete failed: %w; fallback delete failed: %w", err, fallbackErr)
	}
	return nil
}

func skipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
