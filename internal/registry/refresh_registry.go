// Package registry holds the single live refresh token per identity.
// Storing a new token overwrites the previous one, which is what makes
// single-session-per-identity and logout-everywhere enforceable.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned when no live refresh token exists for the
// identity, either because none was stored or the TTL elapsed.
var ErrNoSession = errors.New("no refresh session")

type RefreshTokenRegistry interface {
	// Store replaces any prior entry for the identity.
	Store(ctx context.Context, userID uint, tokenHash string, ttl time.Duration) error
	Fetch(ctx context.Context, userID uint) (string, error)
	// Revoke is idempotent; revoking an absent entry is not an error.
	Revoke(ctx context.Context, userID uint) error
}

type RedisRefreshTokenRegistry struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRefreshTokenRegistry(client redis.UniversalClient, prefix string) *RedisRefreshTokenRegistry {
	if prefix == "" {
		prefix = "refresh_session"
	}
	return &RedisRefreshTokenRegistry{client: client, prefix: prefix}
}

func (r *RedisRefreshTokenRegistry) Store(ctx context.Context, userID uint, tokenHash string, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(userID), tokenHash, ttl).Err()
}

func (r *RedisRefreshTokenRegistry) Fetch(ctx context.Context, userID uint) (string, error) {
	val, err := r.client.Get(ctx, r.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *RedisRefreshTokenRegistry) Revoke(ctx context.Context, userID uint) error {
	return r.client.Del(ctx, r.key(userID)).Err()
}

func (r *RedisRefreshTokenRegistry) key(userID uint) string {
	return fmt.Sprintf("%s:%d", r.prefix, userID)
}
