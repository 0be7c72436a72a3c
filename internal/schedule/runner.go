package schedule

// 调度器：cron 驱动提醒/升级扫描和过期令牌清扫
// 正确性由存储层的条件写保证，这里的锁和 run-guard 只是省掉无谓的重复扫描

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"StillHere/config"
	"StillHere/internal/cache"
	"StillHere/internal/service"
	"StillHere/pkg/logger"
)

const (
	escalationLockKey = "job:escalation"
	expiryLockKey     = "job:expiry"
	jobLockTTL        = 10 * time.Minute

	// 生产：升级扫描每天 00:05，清扫每 10 分钟
	escalationSpec = "5 0 * * *"
	expirySpec     = "*/10 * * * *"
	// 开发环境加速,方便本地调试
	devSpec = "@every 1m"
)

type Runner struct {
	escalation *service.EscalationService
	verify     *service.VerificationService
	cron       *cron.Cron

	escalationMu      sync.Mutex
	escalationRunning bool
	expiryMu          sync.Mutex
	expiryRunning     bool
}

func NewRunner(escalation *service.EscalationService, verify *service.VerificationService) *Runner {
	return &Runner{
		escalation: escalation,
		verify:     verify,
		cron:       cron.New(),
	}
}

// Start 注册任务并启动 cron 循环
func (r *Runner) Start() error {
	escSpec, expSpec := escalationSpec, expirySpec
	if config.Cfg.IsDevelopment() {
		escSpec, expSpec = devSpec, devSpec
		logger.Logger.Info("Scheduler running in development mode with 1m intervals")
	}

	if _, err := r.cron.AddFunc(escSpec, r.runEscalation); err != nil {
		return err
	}
	if _, err := r.cron.AddFunc(expSpec, r.runExpiry); err != nil {
		return err
	}

	r.cron.Start()
	logger.Logger.Info("Scheduler started",
		zap.String("escalation_spec", escSpec),
		zap.String("expiry_spec", expSpec),
	)
	return nil
}

// Stop 停止调度并等待在途任务结束
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	logger.Logger.Info("Scheduler stopped")
}

func (r *Runner) runEscalation() {
	r.escalationMu.Lock()
	if r.escalationRunning {
		r.escalationMu.Unlock()
		logger.Logger.Info("Escalation sweep already running, skipping")
		return
	}
	r.escalationRunning = true
	r.escalationMu.Unlock()

	defer func() {
		r.escalationMu.Lock()
		r.escalationRunning = false
		r.escalationMu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// 多实例部署时 redis 锁让出给先到的实例
	locked, err := cache.TryLock(ctx, escalationLockKey, jobLockTTL)
	if err != nil {
		logger.Logger.Warn("Escalation sweep lock check failed, proceeding", zap.Error(err))
	} else if !locked {
		logger.Logger.Info("Escalation sweep held by another instance, skipping")
		return
	} else {
		defer cache.Unlock(ctx, escalationLockKey)
	}

	summary := r.escalation.RunSweep(ctx)
	logger.Logger.Info("Scheduled escalation sweep finished",
		zap.Int("processed", summary.Processed),
		zap.Int("reminders_sent", summary.RemindersSent),
		zap.Int("contacts_notified", summary.ContactsNotified),
		zap.Int("error_count", len(summary.Errors)),
	)
}

func (r *Runner) runExpiry() {
	r.expiryMu.Lock()
	if r.expiryRunning {
		r.expiryMu.Unlock()
		logger.Logger.Info("Expiry sweep already running, skipping")
		return
	}
	r.expiryRunning = true
	r.expiryMu.Unlock()

	defer func() {
		r.expiryMu.Lock()
		r.expiryRunning = false
		r.expiryMu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	locked, err := cache.TryLock(ctx, expiryLockKey, jobLockTTL)
	if err != nil {
		logger.Logger.Warn("Expiry sweep lock check failed, proceeding", zap.Error(err))
	} else if !locked {
		logger.Logger.Info("Expiry sweep held by another instance, skipping")
		return
	} else {
		defer cache.Unlock(ctx, expiryLockKey)
	}

	result := r.verify.SweepExpired(ctx)
	logger.Logger.Info("Scheduled expiry sweep finished",
		zap.Int("processed", result.Processed),
		zap.Int("released", result.Released),
		zap.Int("error_count", len(result.Errors)),
	)
}
