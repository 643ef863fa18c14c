package auth

import (
	"context"
	"time"

	"github.com/spec-kit/issue-tracker/internal/cache"
)

const revokedTokenKeyPrefix = "revoked:access_token:"

// RevocationStore tracks logged-out token ids until they would have expired anyway.
type RevocationStore struct {
	cache *cache.Client
}

// NewRevocationStore creates a store backed by the cache.
func NewRevocationStore(c *cache.Client) *RevocationStore {
	return &RevocationStore{cache: c}
}

// Revoke marks the token id as revoked for ttl.
func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) {
	if s == nil || tokenID == "" || ttl <= 0 {
		return
	}
	s.cache.Set(ctx, revokedTokenKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsRevoked reports whether the token id was revoked. Unreachable redis reports false.
func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) bool {
	if s == nil || tokenID == "" {
		return false
	}
	return s.cache.Exists(ctx, revokedTokenKeyPrefix+tokenID)
}
