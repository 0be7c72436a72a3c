package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"StillHere/internal/cache"
	"StillHere/internal/model"
	"StillHere/pkg/logger"
	"StillHere/storage/mq"
)

// ReminderSender worker 侧的提醒发送动作，由 service 层实现
type ReminderSender interface {
	SendReminder(ctx context.Context, msg model.ReminderDispatchMessage) error
}

var reminderSender ReminderSender

// SetReminderSender 设置提醒发送服务（在 worker 启动时调用）
func SetReminderSender(s ReminderSender) {
	reminderSender = s
}

// StartReminderDispatchConsumer 启动打卡提醒消费者
func StartReminderDispatchConsumer(ctx context.Context) error {
	handler := func(body []byte) error {
		var msg model.ReminderDispatchMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal reminder dispatch message: %w", err)
		}

		// SETNX 幂等标记，重复投递直接 ack 跳过
		processed, err := cache.TryMarkDispatchProcessing(ctx, msg.MessageID, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check dispatch processed status",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
			// 检查失败继续处理，不阻塞业务，可能重复发送
		} else if !processed {
			logger.Logger.Info("Dispatch already processed or being processed, skipping",
				zap.String("message_id", msg.MessageID),
				zap.Int64("user_id", msg.UserID),
			)
			return nil
		}

		logger.Logger.Info("Processing reminder dispatch",
			zap.String("message_id", msg.MessageID),
			zap.Int64("user_id", msg.UserID),
			zap.Int("attempt", msg.Attempt),
		)

		if reminderSender == nil {
			cache.UnmarkDispatchProcessing(ctx, msg.MessageID)
			return fmt.Errorf("reminder sender not initialized")
		}

		if err := reminderSender.SendReminder(ctx, msg); err != nil {
			// 处理失败，取消标记，允许重试
			cache.UnmarkDispatchProcessing(ctx, msg.MessageID)
			return fmt.Errorf("failed to send reminder: %w", err)
		}

		if err := cache.MarkDispatchProcessed(ctx, msg.MessageID, 48*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark dispatch as processed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}

		return nil
	}

	return mq.Consume(mq.ConsumeOptions{
		Queue:         "scheduler.checkin.reminder",
		ConsumerTag:   "reminder_dispatch_consumer",
		PrefetchCount: 10,
		Handler:       handler,
	})
}

// StartAuditEventConsumer 启动审计事件消费者
// 事件已经在写入侧落库，这里只消费打日志，给外部订阅方留出扩展点
func StartAuditEventConsumer(ctx context.Context) error {
	handler := func(body []byte) error {
		var msg model.AuditEventMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal audit event message: %w", err)
		}

		logger.Logger.Info("Audit event observed",
			zap.Int64("event_id", msg.EventID),
			zap.Int64("user_id", msg.UserID),
			zap.String("event_type", msg.EventType),
			zap.String("occurred_at", msg.OccurredAt),
		)
		return nil
	}

	return mq.Consume(mq.ConsumeOptions{
		Queue:         "events.audit",
		ConsumerTag:   "audit_event_consumer",
		PrefetchCount: 20,
		Handler:       handler,
	})
}

// StartAllConsumers 启动所有消费者（worker 启动时调用）
func StartAllConsumers(ctx context.Context) {
	var wg sync.WaitGroup

	consumers := []struct {
		name     string
		consumer func(context.Context) error
	}{
		{"reminder_dispatch", StartReminderDispatchConsumer},
		{"audit_event", StartAuditEventConsumer},
	}

	for _, c := range consumers {
		wg.Add(1)
		go func(name string, consumer func(context.Context) error) {
			defer wg.Done()

			logger.Logger.Info("Starting consumer",
				zap.String("consumer_name", name),
			)

			if err := consumer(ctx); err != nil {
				logger.Logger.Error("Consumer exited with error",
					zap.String("consumer_name", name),
					zap.Error(err),
				)
			}
		}(c.name, c.consumer)
	}

	wg.Wait()
}
