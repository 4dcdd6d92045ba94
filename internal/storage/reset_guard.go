package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vandap/vandap-backend/internal/config"
)

// resetLockTTL caps how long a reset can hold its lock if the process dies
// mid-reset.
const resetLockTTL = 30 * time.Second

// RedisResetGuard serializes resets of the same participant across replicas
// with a SET NX lock.
type RedisResetGuard struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewRedisResetGuard(rdb *redis.Client, log zerolog.Logger) *RedisResetGuard {
	return &RedisResetGuard{
		rdb: rdb,
		log: log.With().Str("component", "reset_guard").Logger(),
	}
}

// Acquire takes the reset lock. Returns false when another reset holds it.
func (g *RedisResetGuard) Acquire(ctx context.Context, participantID string) (bool, error) {
	key := config.CacheKey.ResetLockKey(participantID)
	return g.rdb.SetNX(ctx, key, "1", resetLockTTL).Result()
}

// Release drops the reset lock.
func (g *RedisResetGuard) Release(ctx context.Context, participantID string) {
	key := config.CacheKey.ResetLockKey(participantID)
	if err := g.rdb.Del(ctx, key).Err(); err != nil {
		g.log.Warn().Err(err).Str("participant_id", participantID).Msg("Failed to release reset lock")
	}
}
