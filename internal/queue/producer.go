package queue

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"StillHere/internal/model"
	"StillHere/pkg/logger"
	"StillHere/pkg/snowflake"
	"StillHere/storage/mq"
)

// PublishReminderDispatch 发布打卡提醒投递消息（延迟消息）
func PublishReminderDispatch(msg model.ReminderDispatchMessage) error {
	if msg.MessageID == "" {
		id, err := snowflake.NextID()
		if err != nil {
			logger.Logger.Error("Failed to generate message ID",
				zap.Int64("user_id", msg.UserID),
				zap.Error(err),
			)
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = fmt.Sprintf("reminder_%d", id)
	}

	delay := time.Duration(msg.DelaySeconds) * time.Second

	err := mq.PublishDelayedMessage(
		"scheduler.delayed",          // exchange
		"scheduler.checkin.reminder", // routing key
		delay,
		msg,
	)

	if err != nil {
		logger.Logger.Error("Failed to publish reminder dispatch message",
			zap.String("message_id", msg.MessageID),
			zap.Int64("user_id", msg.UserID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published reminder dispatch message",
		zap.String("message_id", msg.MessageID),
		zap.Int64("user_id", msg.UserID),
		zap.Int("attempt", msg.Attempt),
		zap.Duration("delay", delay),
	)

	return nil
}

// PublishAuditEvent 发布审计事件到事件总线
// 审计事件已经落库，这里只做 fire-and-forget 广播，失败只记日志
func PublishAuditEvent(msg model.AuditEventMessage) {
	routingKey := fmt.Sprintf("confirmation.%s", msg.EventType)

	if err := mq.PublishMessage("events", routingKey, msg); err != nil {
		logger.Logger.Warn("Failed to publish audit event",
			zap.Int64("event_id", msg.EventID),
			zap.String("event_type", msg.EventType),
			zap.Error(err),
		)
	}
}
