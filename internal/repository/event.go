package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"StillHere/internal/model"
)

type EventStore struct {
	db *gorm.DB
}

func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

// Append 审计事件只追加，任何路径都不会更新或删除已写入的行
func (s *EventStore) Append(ctx context.Context, e *model.ConfirmationEvent) error {
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("failed to append confirmation event: %w", err)
	}
	return nil
}

func (s *EventStore) ListByUser(ctx context.Context, userID int64, limit int) ([]model.ConfirmationEvent, error) {
	var rows []model.ConfirmationEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmation events: %w", err)
	}
	return rows, nil
}

func (s *EventStore) CountByType(ctx context.Context, userID int64, eventType model.EventType) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.ConfirmationEvent{}).
		Where("user_id = ? AND type = ?", userID, eventType).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count confirmation events: %w", err)
	}
	return count, nil
}
