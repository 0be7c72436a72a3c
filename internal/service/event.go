package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"StillHere/internal/model"
	"StillHere/internal/queue"
	"StillHere/internal/repository"
	"StillHere/pkg/logger"
)

// EventService 审计事件落库加事件总线广播
// append 是 fire-and-forget 语义：失败只记日志，永远不阻塞主流程
type EventService struct {
	events  *repository.EventStore
	publish func(model.AuditEventMessage)
	now     func() time.Time
}

type EventOption func(*EventService)

// WithEventPublisher 替换事件总线发布函数，测试时传 nil 关闭广播
func WithEventPublisher(fn func(model.AuditEventMessage)) EventOption {
	return func(s *EventService) {
		s.publish = fn
	}
}

// WithEventClock 注入时间源
func WithEventClock(clock func() time.Time) EventOption {
	return func(s *EventService) {
		if clock != nil {
			s.now = clock
		}
	}
}

func NewEventService(db *gorm.DB, opts ...EventOption) *EventService {
	s := &EventService{
		events:  repository.NewEventStore(db),
		publish: queue.PublishAuditEvent,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append 写入一条审计事件并广播
func (s *EventService) Append(ctx context.Context, e *model.ConfirmationEvent) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}

	if err := s.events.Append(ctx, e); err != nil {
		logger.Logger.Error("Failed to append confirmation event",
			zap.Int64("user_id", e.UserID),
			zap.String("event_type", string(e.Type)),
			zap.Error(err),
		)
		return
	}

	if s.publish == nil {
		return
	}

	msg := model.AuditEventMessage{
		EventID:    e.ID,
		UserID:     e.UserID,
		EventType:  string(e.Type),
		Decision:   e.Decision,
		OccurredAt: e.CreatedAt.Format(time.RFC3339),
	}
	if len(e.Detail) > 0 {
		msg.Payload = e.Detail
	}
	s.publish(msg)
}

// ListByUser 查询用户的审计轨迹，最新在前
func (s *EventService) ListByUser(ctx context.Context, userID int64, limit int) ([]model.ConfirmationEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.events.ListByUser(ctx, userID, limit)
}
