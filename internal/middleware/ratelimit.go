package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"StillHere/internal/cache"
	pkgerrors "StillHere/pkg/errors"
	"StillHere/pkg/logger"
	"StillHere/pkg/response"
)

// RateLimitConfig 固定窗口限流配置
type RateLimitConfig struct {
	// 时间窗口
	Window time.Duration
	// 窗口内最大请求数
	MaxRequests int
	// 限流键作用域前缀
	Scope string
}

// VerifyStatusRateLimitConfig 核验接口按 IP 限流
// 未鉴权的公开接口，防止拿着过期链接的脚本打穿数据库
var VerifyStatusRateLimitConfig = RateLimitConfig{
	Window:      time.Minute,
	MaxRequests: 10,
	Scope:       "verify",
}

// RateLimitMiddleware 按客户端 IP 的固定窗口限流
func RateLimitMiddleware(cfg RateLimitConfig) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		count, err := cache.IncrRequestCount(ctx, cfg.Scope, c.ClientIP(), cfg.Window)
		if err != nil {
			// redis 不可用时放行，限流是保护不是门禁
			logger.Logger.Warn("Rate limit check failed, allowing request",
				zap.String("scope", cfg.Scope),
				zap.Error(err),
			)
			c.Next(ctx)
			return
		}

		remaining := cfg.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > cfg.MaxRequests {
			response.Error(ctx, c, pkgerrors.RateLimited)
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}

// VerifyStatusRateLimitMiddleware 核验接口限流中间件
func VerifyStatusRateLimitMiddleware() app.HandlerFunc {
	return RateLimitMiddleware(VerifyStatusRateLimitConfig)
}
