package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openpricemap/openpricemap/backend/internal/domain/providers"
	redisclient "github.com/openpricemap/openpricemap/backend/internal/infrastructure/clients/redis"
	apperrors "github.com/openpricemap/openpricemap/backend/pkg/errors"
)

const lockKeyPrefix = "pipeline:lock:"

// RedisRunLock serializes pipeline runs across processes with SET NX EX.
// The TTL bounds how long a crashed run can keep the key held.
type RedisRunLock struct {
	client *redisclient.Client
}

// NewRedisRunLock creates a Redis-backed run lock
func NewRedisRunLock(client *redisclient.Client) providers.RunLocker {
	return &RedisRunLock{client: client}
}

// Acquire takes the run lock for key, returning its release function
func (l *RedisRunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	redisKey := lockKeyPrefix + key

	ok, err := l.client.Client().SetNX(ctx, redisKey, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to acquire run lock", err)
	}
	if !ok {
		return nil, apperrors.NewConflictError("a run for " + key + " is already in flight")
	}

	release := func() {
		if err := l.client.Client().Del(context.Background(), redisKey).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to release run lock")
		}
	}
	return release, nil
}

// LocalRunLock is an in-process run lock for deployments without Redis and
// for tests. It provides the same no-overlap guarantee within one process.
type LocalRunLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalRunLock creates an in-process run lock
func NewLocalRunLock() providers.RunLocker {
	return &LocalRunLock{held: make(map[string]struct{})}
}

// Acquire takes the run lock for key, returning its release function
func (l *LocalRunLock) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.held[key]; taken {
		return nil, apperrors.NewConflictError("a run for " + key + " is already in flight")
	}
	l.held[key] = struct{}{}

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}
	return release, nil
}
