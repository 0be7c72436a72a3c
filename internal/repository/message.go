package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"StillHere/internal/model"
	pkgerrors "StillHere/pkg/errors"
)

type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

// CreateWithRule 留言和投递规则在同一事务里落库
func (s *MessageStore) CreateWithRule(ctx context.Context, m *model.Message, rule *model.DeliveryRule) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		rule.MessageID = m.ID
		rule.UserID = m.UserID
		return tx.Create(rule).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (s *MessageStore) FindByPublicID(ctx context.Context, userID int64, publicID string) (*model.Message, error) {
	var m model.Message
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND public_id = ?", userID, publicID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.MessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return &m, nil
}

func (s *MessageStore) FindByID(ctx context.Context, id int64) (*model.Message, error) {
	var m model.Message
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.MessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return &m, nil
}

func (s *MessageStore) ListByUser(ctx context.Context, userID int64) ([]model.Message, error) {
	var rows []model.Message
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return rows, nil
}

func (s *MessageStore) FindRule(ctx context.Context, messageID int64) (*model.DeliveryRule, error) {
	var rule model.DeliveryRule
	err := s.db.WithContext(ctx).Where("message_id = ?", messageID).First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.MessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find delivery rule: %w", err)
	}
	return &rule, nil
}

// FindReleasable 拉取某用户所有待放行的 checkin 模式留言
func (s *MessageStore) FindReleasable(ctx context.Context, userID int64) ([]model.Message, error) {
	var rows []model.Message
	err := s.db.WithContext(ctx).
		Joins("JOIN delivery_rules ON delivery_rules.message_id = messages.id").
		Where("messages.user_id = ? AND messages.status = ? AND delivery_rules.mode = ? AND delivery_rules.deleted_at IS NULL",
			userID, model.MessageStatusScheduled, model.DeliveryModeCheckin).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find releasable messages: %w", err)
	}
	return rows, nil
}

// MarkDelivered 放行的最后一步，scheduled 到 delivered 的条件翻转
// 两个 Release 流程撞上同一条留言时只有一个能翻转成功，保证至多投递一次
func (s *MessageStore) MarkDelivered(ctx context.Context, id int64, now time.Time, channelMessageID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND status = ?", id, model.MessageStatusScheduled).
		Updates(map[string]interface{}{
			"status":               model.MessageStatusDelivered,
			"delivered_at":         now,
			"delivered_message_id": channelMessageID,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark message delivered: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Schedule 草稿转入待投递，校验收件人在 service 层完成
func (s *MessageStore) Schedule(ctx context.Context, id int64) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND status = ?", id, model.MessageStatusDraft).
		Update("status", model.MessageStatusScheduled)
	if res.Error != nil {
		return false, fmt.Errorf("failed to schedule message: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *MessageStore) Update(ctx context.Context, m *model.Message) error {
	if err := s.db.WithContext(ctx).Save(m).Error; err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	return nil
}

func (s *MessageStore) Delete(ctx context.Context, userID int64, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Message{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return pkgerrors.MessageNotFound
		}
		return tx.Where("message_id = ?", id).Delete(&model.DeliveryRule{}).Error
	})
	if err != nil {
		if errors.Is(err, pkgerrors.MessageNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}
