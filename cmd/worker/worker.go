package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"StillHere/config"
	"StillHere/internal/queue"
	"StillHere/internal/service"
	"StillHere/pkg/logger"
	"StillHere/pkg/mailer"
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
		logger.Logger.Info("Mailer disabled, reminder emails will fail")
	}

	// 提醒消费者需要发件和记事件的能力
	events := service.NewEventService(database.DB())
	queue.SetReminderSender(service.NewReminderWorker(events, mailer.GetClient()))

	logger.Logger.Info("Worker service starting",
		zap.String("service", "stillhere-worker"),
		zap.String("environment", config.Cfg.Environment),
	)

	// 启动所有的消费者部分
	queue.StartAllConsumers(ctx)

	logger.Logger.Info("Worker service shutting down gracefully")
}
