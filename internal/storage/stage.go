package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vandap/vandap-backend/internal/config"
)

// stagedArtifactTTL bounds how long an uploaded-but-unsubmitted recording ref
// survives. Long enough to outlive any attempt window.
const stagedArtifactTTL = 24 * time.Hour

// RedisArtifactStage remembers which recording a participant uploaded before
// submitting. The expiry sweep reads it to finalize timed-out attempts with
// whatever audio arrived in time.
type RedisArtifactStage struct {
	rdb *redis.Client
}

// NewRedisArtifactStage creates a new stage backed by the given client.
func NewRedisArtifactStage(rdb *redis.Client) *RedisArtifactStage {
	return &RedisArtifactStage{rdb: rdb}
}

// Put records the staged ref for a participant, replacing any previous one.
func (s *RedisArtifactStage) Put(ctx context.Context, participantID, ref string) error {
	key := config.CacheKey.StagedArtifactKey(participantID)
	if err := s.rdb.Set(ctx, key, ref, stagedArtifactTTL).Err(); err != nil {
		return fmt.Errorf("stage artifact: %w", err)
	}
	return nil
}

// Get returns the staged ref for a participant, or "" when nothing is staged.
func (s *RedisArtifactStage) Get(ctx context.Context, participantID string) (string, error) {
	key := config.CacheKey.StagedArtifactKey(participantID)
	ref, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read staged artifact: %w", err)
	}
	return ref, nil
}

// Clear removes the staged ref. Clearing an absent key is a no-op.
func (s *RedisArtifactStage) Clear(ctx context.Context, participantID string) error {
	key := config.CacheKey.StagedArtifactKey(participantID)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("clear staged artifact: %w", err)
	}
	return nil
}
