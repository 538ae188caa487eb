// Package cache owns the Redis client and the key layout stored in it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"snapverse/internal/observability"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

var client *redis.Client

// instrumentHook traces each command as a client span and counts failures.
// redis.Nil is a cache miss, not a failure.
type instrumentHook struct{}

func (instrumentHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (instrumentHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, span := observability.StartClientSpan(ctx, "redis", cmd.Name())
		err := next(ctx, cmd)
		observability.EndSpan(span, failure(cmd.Name(), err))
		return err
	}
}

func (instrumentHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		ctx, span := observability.StartClientSpan(ctx, "redis", "pipeline")
		err := next(ctx, cmds)
		observability.EndSpan(span, failure("pipeline", err))
		return err
	}
}

func failure(op string, err error) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return nil
	}
	observability.RedisErrorRate.WithLabelValues(op).Inc()
	return err
}

// NewClient builds an instrumented client for addr, given as host:port or
// as a redis:// URL. It does not dial.
func NewClient(addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = parsed
	}
	c := redis.NewClient(opts)
	c.AddHook(instrumentHook{})
	return c, nil
}

// Connect is NewClient followed by a PING.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	c, err := NewClient(addr)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", c.Options().Addr, err)
	}
	return c, nil
}

// InitRedis sets the shared client, or leaves it nil when Redis is
// unreachable. Without Redis, token revocation and rate limits fail open,
// flag overrides are ignored and payments cannot start.
func InitRedis(addr string) {
	c, err := Connect(context.Background(), addr)
	if err != nil {
		observability.GlobalLogger.Warn("continuing without redis", slog.String("error", err.Error()))
		client = nil
		return
	}
	client = c
	observability.GlobalLogger.Info("redis connected", slog.String("addr", c.Options().Addr))
}

// GetClient returns the shared client; nil when Redis is unavailable.
func GetClient() *redis.Client {
	return client
}
