package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"pluto_chat_service/internal/chat/domain"

	"github.com/go-redis/redis/v8"
)

const cachedMessagesPerRoom = 100

// MessageCache keeps the most recently appended messages per room so a freshly
// subscribed connection can be seeded without a full history read.
type MessageCache interface {
	Push(ctx context.Context, roomID string, msg domain.Message) error
	Recent(ctx context.Context, roomID string, limit int) ([]domain.Message, error)
}

type redisMessageCache struct {
	client *redis.Client
}

// NewRedisMessageCache create a MessageCache over a redis sorted set per room
func NewRedisMessageCache(client *redis.Client) MessageCache {
	return &redisMessageCache{client: client}
}

func cacheKey(roomID string) string {
	return fmt.Sprintf("chat:room:%s:messages", roomID)
}

// Push cache one appended message, trimming the set to the newest entries
func (c *redisMessageCache) Push(ctx context.Context, roomID string, msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := cacheKey(roomID)
	// timestamp 作為 score，同秒內用 nano 保持排序
	score := float64(msg.Timestamp.UnixNano())
	if err := c.client.ZAdd(ctx, key, &redis.Z{Score: score, Member: data}).Err(); err != nil {
		return err
	}

	return c.client.ZRemRangeByRank(ctx, key, 0, -int64(cachedMessagesPerRoom)-1).Err()
}

// Recent newest-first cached messages for a room
func (c *redisMessageCache) Recent(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = cachedMessagesPerRoom
	}

	result, err := c.client.ZRevRange(ctx, cacheKey(roomID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	msgs := make([]domain.Message, 0, len(result))
	for _, raw := range result {
		var msg domain.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
