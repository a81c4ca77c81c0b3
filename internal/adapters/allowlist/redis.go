package allowlist

import (
	"context"
	"errors"
	"fmt"

	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the Redis set holding allowed admin emails.
const DefaultRedisKey = "kb-admin:allowed-admins"

// RedisSource reads the allow-list from a Redis set on every call, letting
// operators add or remove admins with SADD/SREM at runtime.
type RedisSource struct {
	client redis.UniversalClient
	key    string
}

// NewRedisSource creates a Redis-backed source. An empty key selects DefaultRedisKey.
func NewRedisSource(client redis.UniversalClient, key string) *RedisSource {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSource{client: client, key: key}
}

// Allowlist returns the current members of the set. A missing key is an empty list.
func (s *RedisSource) Allowlist(ctx context.Context) (domainauth.Allowlist, error) {
	if s.client == nil {
		return domainauth.Allowlist{}, errors.New("redis client not configured")
	}
	members, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Allowlist{}, nil
		}
		return domainauth.Allowlist{}, fmt.Errorf("redis smembers: %w", err)
	}
	return domainauth.NewAllowlist(members), nil
}

// Key returns the Redis set the source reads.
func (s *RedisSource) Key() string { return s.key }

// Add normalizes and stores emails. It returns how many were new.
func (s *RedisSource) Add(ctx context.Context, emails ...string) (int64, error) {
	members := normalizedMembers(emails)
	if len(members) == 0 {
		return 0, errors.New("no valid email addresses given")
	}
	if s.client == nil {
		return 0, errors.New("redis client not configured")
	}
	n, err := s.client.SAdd(ctx, s.key, members...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis sadd: %w", err)
	}
	return n, nil
}

// Remove deletes emails from the set. It returns how many were present.
// Removal applies to the next request; sessions of removed admins are
// rejected by the request gate without being revoked.
func (s *RedisSource) Remove(ctx context.Context, emails ...string) (int64, error) {
	members := normalizedMembers(emails)
	if len(members) == 0 {
		return 0, errors.New("no valid email addresses given")
	}
	if s.client == nil {
		return 0, errors.New("redis client not configured")
	}
	n, err := s.client.SRem(ctx, s.key, members...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis srem: %w", err)
	}
	return n, nil
}

func normalizedMembers(emails []string) []any {
	list := domainauth.NewAllowlist(emails).Members()
	out := make([]any, len(list))
	for i, m := range list {
		out[i] = m
	}
	return out
}
