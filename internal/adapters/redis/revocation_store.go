// Package redis provides Redis-based adapters for the kb-admin system.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore records signed-out session token ids in Redis.
// Each entry lives only as long as the token it revokes could still verify.
type RevocationStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRevocationStore creates a Redis-based revocation store.
func NewRevocationStore(client redis.UniversalClient) *RevocationStore {
	return &RevocationStore{
		client: client,
		prefix: "revoked:",
	}
}

// NewRevocationStoreWithPrefix creates a revocation store with a custom key prefix.
func NewRevocationStoreWithPrefix(client redis.UniversalClient, prefix string) *RevocationStore {
	return &RevocationStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return errors.New("token ID cannot be empty")
	}

	ttl := time.Until(until)
	if ttl <= 0 {
		// The token can no longer verify; nothing to remember.
		return nil
	}

	if err := s.client.Set(ctx, s.prefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}

	n, err := s.client.Exists(ctx, s.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}
