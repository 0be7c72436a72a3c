package cache

import (
	"context"
	"fmt"
	"time"

	"StillHere/storage/redis"
)

const (
	rateLimitPrefix = "ratelimit"
)

// IncrRequestCount 固定窗口计数器，verify-status 接口按 IP 限流用
// 返回本窗口内的累计次数
func IncrRequestCount(ctx context.Context, scope, key string, window time.Duration) (int64, error) {
	fullkey := redis.Key(rateLimitPrefix, scope, key)

	pipe := redis.Client().Pipeline()
	incr := pipe.Incr(ctx, fullkey)
	pipe.Expire(ctx, fullkey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	return incr.Val(), nil
}
