package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenRevocations stores revoked token IDs until the tokens would have
// expired anyway.
type TokenRevocations struct {
	rdb *redis.Client
}

// NewTokenRevocations wraps rdb. A nil client yields a store that never
// reports a token as revoked.
func NewTokenRevocations(rdb *redis.Client) *TokenRevocations {
	return &TokenRevocations{rdb: rdb}
}

// Revoke marks jti revoked until expiresAt.
func (r *TokenRevocations) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if r.rdb == nil || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl < MinRevocationTTL {
		ttl = MinRevocationTTL
	}
	return r.rdb.Set(ctx, RevokedTokenKey(jti), "1", ttl).Err()
}

// IsRevoked reports whether jti was revoked.
func (r *TokenRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if r.rdb == nil || jti == "" {
		return false, nil
	}
	n, err := r.rdb.Exists(ctx, RevokedTokenKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
