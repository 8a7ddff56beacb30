// Package lock provides cross-process job locks backed by Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/bizledger/internal/apperrors"
	"github.com/SscSPs/bizledger/internal/platform/logging"
	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// JobKey builds the lock key of a batch job for one company.
func JobKey(job, companyID string) string {
	if companyID == "" {
		companyID = "all"
	}
	return fmt.Sprintf("ledger:%s:%s", job, companyID)
}

// RedisLocker obtains non-blocking redislock locks with a fixed TTL.
type RedisLocker struct {
	locker *redislock.Client
	ttl    time.Duration
}

// NewRedisLocker wraps an existing client.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{locker: redislock.New(client), ttl: ttl}
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Acquire obtains key or returns apperrors.ErrConflict when another process holds it.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	logger := logging.GetLoggerFromCtx(ctx)
	lk, err := l.locker.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		logger.Warn("Job lock is held by another process", slog.String("lock_key", key))
		return nil, apperrors.NewConflictError("job "+key+" is already running", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	logger.Debug("Job lock obtained", slog.String("lock_key", key), slog.Duration("ttl", l.ttl))

	return func(ctx context.Context) error {
		if err := lk.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		return nil
	}, nil
}

// NoopLocker always succeeds. Used when Redis is not configured.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}
