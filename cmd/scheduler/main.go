package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"StillHere/config"
	"StillHere/internal/schedule"
	"StillHere/internal/service"
	"StillHere/pkg/logger"
	"StillHere/pkg/mailer"
	"StillHere/pkg/metrics"
	"StillHere/pkg/snowflake"
	"StillHere/storage"
	"StillHere/storage/database"
)

func main() {

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	if err := mailer.Init(); err != nil {
		logger.Logger.Warn("Failed to initialize mailer", zap.Error(err))
		logger.Logger.Info("Mailer disabled, contact notification emails will fail")
	}

	if err := metrics.Init(); err != nil {
		logger.Logger.Warn("Failed to initialize engine metrics", zap.Error(err))
	}

	// 扫描任务直接走服务层，不经过 HTTP
	db := database.DB()
	mail := mailer.GetClient()

	events := service.NewEventService(db)
	release := service.NewReleaseService(db, mail)
	verify := service.NewVerificationService(db, events, release)
	escalation := service.NewEscalationService(db, verify, events, mail)

	runner := schedule.NewRunner(escalation, verify)
	if err := runner.Start(); err != nil {
		logger.Logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	logger.Logger.Info("Scheduler service starting",
		zap.String("service", "stillhere-scheduler"),
		zap.String("environment", config.Cfg.Environment),
	)

	<-ctx.Done()

	runner.Stop()
	logger.Logger.Info("Scheduler service shutting down gracefully")
}
