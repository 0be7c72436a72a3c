package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"StillHere/internal/cache"
	"StillHere/pkg/logger"
	"StillHere/pkg/response"
)

// 两个批处理接口对并发调用是安全的（条件写保证），
// 锁只是省掉重复扫描，不承担正确性
const (
	escalationLockKey = "job:escalation"
	expiryLockKey     = "job:expiry"
	jobLockTTL        = 10 * time.Minute
)

// RunEscalationSweep 触发提醒/升级扫描
// POST /v1/internal/jobs/escalation-sweep
func RunEscalationSweep(ctx context.Context, c *app.RequestContext) {
	locked, err := cache.TryLock(ctx, escalationLockKey, jobLockTTL)
	if err != nil {
		logger.Logger.Warn("Escalation sweep lock check failed, proceeding",
			zap.Error(err),
		)
	} else if !locked {
		response.SuccessWithMeta(ctx, c, nil, map[string]interface{}{
			"skipped": "another sweep is running",
		})
		return
	} else {
		defer cache.Unlock(ctx, escalationLockKey)
	}

	summary := services.Escalation.RunSweep(ctx)
	response.Success(ctx, c, summary)
}

// RunExpirySweep 触发过期令牌清扫
// POST /v1/internal/jobs/expiry-sweep
func RunExpirySweep(ctx context.Context, c *app.RequestContext) {
	locked, err := cache.TryLock(ctx, expiryLockKey, jobLockTTL)
	if err != nil {
		logger.Logger.Warn("Expiry sweep lock check failed, proceeding",
			zap.Error(err),
		)
	} else if !locked {
		response.SuccessWithMeta(ctx, c, nil, map[string]interface{}{
			"skipped": "another sweep is running",
		})
		return
	} else {
		defer cache.Unlock(ctx, expiryLockKey)
	}

	result := services.Verification.SweepExpired(ctx)
	response.Success(ctx, c, result)
}
