package token

import (
	"context"
	"time"

	"sitetrack/internal/pkg/cache"
)

const revokedPrefix = "revoked-token:"

// RevocationStore mantém no Redis os IDs de tokens encerrados por logout até expirarem.
type RevocationStore struct {
	cache cache.Client
}

func NewRevocationStore(c cache.Client) *RevocationStore {
	return &RevocationStore{cache: c}
}

// Revoke marca o token como revogado até expiresAt.
func (r *RevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.cache.Set(ctx, revokedPrefix+tokenID, 1, ttl)
}

func (r *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return r.cache.Exists(ctx, revokedPrefix+tokenID)
}
