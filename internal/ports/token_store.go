package ports

import "context"

// TokenStore keeps the sync API credential out of the plaintext
// config file.
type TokenStore interface {
	Put(ctx context.Context, key string, value string) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
