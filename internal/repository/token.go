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

type TokenStore struct {
	db *gorm.DB
}

func NewTokenStore(db *gorm.DB) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) Create(ctx context.Context, t *model.VerificationToken) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create verification token: %w", err)
	}
	return nil
}

// FindByHash 按哈希查找令牌，明文永远不进数据库
func (s *TokenStore) FindByHash(ctx context.Context, tokenHash string) (*model.VerificationToken, error) {
	var t model.VerificationToken
	err := s.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.TokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find token: %w", err)
	}
	return &t, nil
}

// Claim 原子认领令牌
// used_at IS NULL 条件保证并发点击同一链接时只有一个请求生效，
// RowsAffected == 0 即已被他人抢先，调用方据此返回冲突
func (s *TokenStore) Claim(ctx context.Context, id int64, now time.Time, reason, ip, userAgent string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.VerificationToken{}).
		Where("id = ? AND used_at IS NULL", id).
		Updates(map[string]interface{}{
			"used_at":         now,
			"used_reason":     reason,
			"used_ip":         ip,
			"used_user_agent": userAgent,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim token: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// FindExpiredUnclaimed 拉取过期且未认领的令牌，Sweeper 逐条原子认领
func (s *TokenStore) FindExpiredUnclaimed(ctx context.Context, now time.Time, limit int) ([]model.VerificationToken, error) {
	var rows []model.VerificationToken
	err := s.db.WithContext(ctx).
		Where("used_at IS NULL AND expires_at <= ?", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find expired tokens: %w", err)
	}
	return rows, nil
}

// HasOutstanding 判断用户是否已有未过期未使用的令牌，避免重复发信
func (s *TokenStore) HasOutstanding(ctx context.Context, userID int64, contactEmail string, now time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.VerificationToken{}).
		Where("user_id = ? AND contact_email = ? AND used_at IS NULL AND expires_at > ?",
			userID, contactEmail, now).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count outstanding tokens: %w", err)
	}
	return count > 0, nil
}
