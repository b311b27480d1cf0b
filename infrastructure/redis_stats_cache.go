package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dicebank/domain/entities"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ConnectRedis opens a client and checks the server answers
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}

	log.WithField("addr", addr).Info("Connected to Redis")
	return rdb, nil
}

// RedisStatsCache caches the rating aggregate as JSON
type RedisStatsCache struct {
	rdb *redis.Client
}

// NewRedisStatsCache wraps rdb
func NewRedisStatsCache(rdb *redis.Client) *RedisStatsCache {
	return &RedisStatsCache{rdb: rdb}
}

func ratingWindowKey(days int) string {
	return fmt.Sprintf("rating:window:%d", days)
}

// GetRatingWindow returns found=false on a miss
func (c *RedisStatsCache) GetRatingWindow(ctx context.Context, days int) ([]entities.UserDuelStats, bool, error) {
	b, err := c.rdb.Get(ctx, ratingWindowKey(days)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read rating cache: %w", err)
	}

	var stats []entities.UserDuelStats
	if err := json.Unmarshal(b, &stats); err != nil {
		return nil, false, fmt.Errorf("failed to decode rating cache: %w", err)
	}
	return stats, true, nil
}

// SetRatingWindow stores stats for ttl
func (c *RedisStatsCache) SetRatingWindow(ctx context.Context, days int, stats []entities.UserDuelStats, ttl time.Duration) error {
	b, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode rating cache: %w", err)
	}
	if err := c.rdb.Set(ctx, ratingWindowKey(days), b, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write rating cache: %w", err)
	}
	return nil
}

// InvalidateRatingWindow drops the cached aggregate
func (c *RedisStatsCache) InvalidateRatingWindow(ctx context.Context, days int) error {
	if err := c.rdb.Del(ctx, ratingWindowKey(days)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate rating cache: %w", err)
	}
	return nil
}
