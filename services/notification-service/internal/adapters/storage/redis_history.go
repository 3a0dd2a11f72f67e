package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisHistory stores notifications in a capped Redis list, newest at the
// head.
type RedisHistory struct {
	client redis.Cmdable
	key    string
	limit  int
}

func NewRedisHistory(client redis.Cmdable, key string, limit int) *RedisHistory {
	return &RedisHistory{client: client, key: key, limit: limit}
}

// Push runs LPUSH and LTRIM in one MULTI block so the list never grows past
// the limit.
func (h *RedisHistory) Push(ctx context.Context, payload string) error {
	_, err := h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, h.key, payload)
		pipe.LTrim(ctx, h.key, 0, int64(h.limit-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push to %s: %w", h.key, err)
	}
	return nil
}

func (h *RedisHistory) Recent(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 || limit > h.limit {
		limit = h.limit
	}
	list, err := h.client.LRange(ctx, h.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", h.key, err)
	}
	return list, nil
}
