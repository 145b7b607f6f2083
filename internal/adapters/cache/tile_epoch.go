package cache

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/openpricemap/openpricemap/backend/internal/domain/providers"
	redisclient "github.com/openpricemap/openpricemap/backend/internal/infrastructure/clients/redis"
	apperrors "github.com/openpricemap/openpricemap/backend/pkg/errors"
)

const tileEpochKey = "tiles:epoch"

// RedisTileEpoch tracks the tile content epoch in Redis. Cached tile
// responses embed the epoch in their keys, so bumping it on pipeline
// completion invalidates every cached tile at once.
type RedisTileEpoch struct {
	client *redisclient.Client
}

// NewRedisTileEpoch creates a Redis-backed tile epoch provider
func NewRedisTileEpoch(client *redisclient.Client) providers.TileEpochProvider {
	return &RedisTileEpoch{client: client}
}

// Current returns the current tile epoch; 0 before the first bump
func (e *RedisTileEpoch) Current(ctx context.Context) (int64, error) {
	epoch, err := e.client.Client().Get(ctx, tileEpochKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.NewPersistenceError("failed to read tile epoch", err)
	}
	return epoch, nil
}

// Bump advances the tile epoch and returns the new value
func (e *RedisTileEpoch) Bump(ctx context.Context) (int64, error) {
	epoch, err := e.client.Client().Incr(ctx, tileEpochKey).Result()
	if err != nil {
		return 0, apperrors.NewPersistenceError("failed to bump tile epoch", err)
	}
	return epoch, nil
}
