package payment

import (
	"context"
	"errors"
	"strconv"
	"time"

	"snapverse/internal/cache"

	"github.com/redis/go-redis/v9"
)

// SessionStore remembers which account initiated a transaction so that only
// transactions this server created can activate a subscription.
type SessionStore interface {
	Save(ctx context.Context, tranID string, userID uint, ttl time.Duration) error
	// Take returns and forgets the owner of tranID. ok is false when the
	// transaction is unknown or already consumed.
	Take(ctx context.Context, tranID string) (userID uint, ok bool, err error)
}

// RedisSessions keeps payment sessions in Redis.
type RedisSessions struct {
	rdb *redis.Client
}

func NewRedisSessions(rdb *redis.Client) *RedisSessions {
	return &RedisSessions{rdb: rdb}
}

func (s *RedisSessions) Save(ctx context.Context, tranID string, userID uint, ttl time.Duration) error {
	return s.rdb.Set(ctx, cache.PaymentSessionKey(tranID), strconv.FormatUint(uint64(userID), 10), ttl).Err()
}

func (s *RedisSessions) Take(ctx context.Context, tranID string) (uint, bool, error) {
	raw, err := s.rdb.GetDel(ctx, cache.PaymentSessionKey(tranID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false, nil
	}
	return uint(id), true, nil
}
