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

type CheckinStore struct {
	db *gorm.DB
}

func NewCheckinStore(db *gorm.DB) *CheckinStore {
	return &CheckinStore{db: db}
}

func (s *CheckinStore) Create(ctx context.Context, c *model.Checkin) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create checkin: %w", err)
	}
	return nil
}

func (s *CheckinStore) FindByUserID(ctx context.Context, userID int64) (*model.Checkin, error) {
	var c model.Checkin
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.CheckinNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find checkin: %w", err)
	}
	return &c, nil
}

// FindDue 拉取逾期且尚未升级完毕的打卡记录，status_due 复合索引覆盖该查询
func (s *CheckinStore) FindDue(ctx context.Context, now time.Time, limit int) ([]model.Checkin, error) {
	var rows []model.Checkin
	err := s.db.WithContext(ctx).
		Where("status <> ? AND next_due_at < ?", model.CheckinStatusConfirmedAbsent, now).
		Order("next_due_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find due checkins: %w", err)
	}
	return rows, nil
}

// AdvanceReminder 条件更新推进提醒计数并转入 pending
// 以 attempts 作为版本号，两个 sweeper 并发推进同一行时只有一个生效
func (s *CheckinStore) AdvanceReminder(ctx context.Context, id int64, seenAttempts int, nextDueAt time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Checkin{}).
		Where("id = ? AND status <> ? AND attempts = ?", id, model.CheckinStatusConfirmedAbsent, seenAttempts).
		Updates(map[string]interface{}{
			"status":      model.CheckinStatusPending,
			"attempts":    seenAttempts + 1,
			"next_due_at": nextDueAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to advance reminder: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ResetToActive 用户打卡或联系人否认后重置计时
func (s *CheckinStore) ResetToActive(ctx context.Context, id int64, confirmedAt, nextDueAt time.Time) error {
	err := s.db.WithContext(ctx).Model(&model.Checkin{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            model.CheckinStatusActive,
			"attempts":          0,
			"last_confirmed_at": confirmedAt,
			"next_due_at":       nextDueAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to reset checkin: %w", err)
	}
	return nil
}

// MarkConfirmedAbsent 提醒预算耗尽后升级，除非确认或否认不再回头
func (s *CheckinStore) MarkConfirmedAbsent(ctx context.Context, id int64, seenAttempts int) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Checkin{}).
		Where("id = ? AND status <> ? AND attempts = ?", id, model.CheckinStatusConfirmedAbsent, seenAttempts).
		Update("status", model.CheckinStatusConfirmedAbsent)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark confirmed absent: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *CheckinStore) UpdateSettings(ctx context.Context, id int64, intervalDays int, nextDueAt time.Time) error {
	err := s.db.WithContext(ctx).Model(&model.Checkin{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"interval_days": intervalDays,
			"next_due_at":   nextDueAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update checkin settings: %w", err)
	}
	return nil
}
