package cache

import (
	"context"
	"fmt"
	"time"

	"StillHere/storage/redis"
)

const (
	// 提醒去重标记：同一条提醒（用户 + attempt 序号）只投放一次
	reminderSentPrefix = "reminder:sent"
	// worker 消费幂等标记
	dispatchProcessedPrefix = "dispatch:processed"

	reminderSentTTL = 48 * time.Hour
	processedTTL    = 48 * time.Hour
)

// IsReminderSent 检查某次提醒是否已投放到队列
func IsReminderSent(ctx context.Context, userID int64, attempt int) (bool, error) {
	key := redis.Key(reminderSentPrefix, fmt.Sprintf("%d", userID), fmt.Sprintf("%d", attempt))
	result, err := redis.Client().Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check reminder sent mark: %w", err)
	}
	return result > 0, nil
}

// MarkReminderSent 标记某次提醒已投放
func MarkReminderSent(ctx context.Context, userID int64, attempt int) error {
	key := redis.Key(reminderSentPrefix, fmt.Sprintf("%d", userID), fmt.Sprintf("%d", attempt))
	return redis.Client().Set(ctx, key, "1", reminderSentTTL).Err()
}

// TryMarkDispatchProcessing 消费侧的 SETNX 幂等标记
// 返回 true 表示首次处理，false 表示重复投递
func TryMarkDispatchProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	key := redis.Key(dispatchProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}

	result, err := redis.Client().SetNX(ctx, key, "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark dispatch as processing: %w", err)
	}
	return result, nil
}

// UnmarkDispatchProcessing 处理失败时清除标记，允许重投
func UnmarkDispatchProcessing(ctx context.Context, messageID string) error {
	key := redis.Key(dispatchProcessedPrefix, messageID)
	return redis.Client().Del(ctx, key).Err()
}

// MarkDispatchProcessed 处理成功后更新标记并延长 TTL
func MarkDispatchProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	key := redis.Key(dispatchProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}
	return redis.Client().Set(ctx, key, "completed", ttl).Err()
}
