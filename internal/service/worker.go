package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"StillHere/internal/model"
	"StillHere/pkg/logger"
	"StillHere/pkg/mailer"
)

// ReminderWorker worker 侧的提醒发送实现
// 队列里的投递消息在这里变成一封真实的提醒邮件和一条审计事件
type ReminderWorker struct {
	events *EventService
	mail   mailer.Client
	now    func() time.Time
}

func NewReminderWorker(events *EventService, mail mailer.Client) *ReminderWorker {
	return &ReminderWorker{
		events: events,
		mail:   mail,
		now:    time.Now,
	}
}

// SendReminder 实现 queue.ReminderSender
func (w *ReminderWorker) SendReminder(ctx context.Context, msg model.ReminderDispatchMessage) error {
	if msg.Email == "" {
		return fmt.Errorf("reminder %s has no user email", msg.MessageID)
	}

	body := fmt.Sprintf(
		"Hello,\n\nThis is check-in reminder %d. Please confirm you are okay,\n"+
			"otherwise your trusted contacts will be asked to verify your status.\n",
		msg.Attempt)

	channelID, err := w.mail.Send(ctx, mailer.Message{
		To:      msg.Email,
		Subject: "Are you still there? Please check in",
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to send reminder mail: %w", err)
	}

	w.events.Append(ctx, &model.ConfirmationEvent{
		UserID: msg.UserID,
		Type:   model.EventCheckinReminderSent,
		Detail: model.JSONB{
			"attempt":            msg.Attempt,
			"channel_message_id": channelID,
		},
	})

	logger.Logger.Info("Reminder mail sent",
		zap.String("message_id", msg.MessageID),
		zap.Int64("user_id", msg.UserID),
		zap.Int("attempt", msg.Attempt),
	)
	return nil
}
