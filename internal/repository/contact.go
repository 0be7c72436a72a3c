package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"StillHere/internal/model"
	pkgerrors "StillHere/pkg/errors"
)

type ContactStore struct {
	db *gorm.DB
}

func NewContactStore(db *gorm.DB) *ContactStore {
	return &ContactStore{db: db}
}

func (s *ContactStore) Create(ctx context.Context, c *model.TrustedContact) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create trusted contact: %w", err)
	}
	return nil
}

func (s *ContactStore) ListByUser(ctx context.Context, userID int64) ([]model.TrustedContact, error) {
	var rows []model.TrustedContact
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list trusted contacts: %w", err)
	}
	return rows, nil
}

func (s *ContactStore) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.TrustedContact{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count trusted contacts: %w", err)
	}
	return count, nil
}

func (s *ContactStore) Delete(ctx context.Context, userID, id int64) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.TrustedContact{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete trusted contact: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ContactNotFound
	}
	return nil
}

// ResolveForUser 两级解析联系人
// 优先取绑定到待放行留言的联系人，没有再退回档案级（message_id 为空）的
func (s *ContactStore) ResolveForUser(ctx context.Context, userID int64, messageIDs []int64) ([]model.TrustedContact, error) {
	var rows []model.TrustedContact

	if len(messageIDs) > 0 {
		err := s.db.WithContext(ctx).
			Where("user_id = ? AND message_id IN ?", userID, messageIDs).
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to resolve message contacts: %w", err)
		}
		if len(rows) > 0 {
			return dedupeByEmail(rows), nil
		}
	}

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND message_id IS NULL", userID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile contacts: %w", err)
	}
	return dedupeByEmail(rows), nil
}

// 同一邮箱只通知一次
func dedupeByEmail(in []model.TrustedContact) []model.TrustedContact {
	seen := make(map[string]struct{}, len(in))
	out := make([]model.TrustedContact, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c.Email]; ok {
			continue
		}
		seen[c.Email] = struct{}{}
		out = append(out, c)
	}
	return out
}
