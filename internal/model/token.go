package model

import "time"

// TokenAction 令牌用途枚举，目前只有联系人核验一种
type TokenAction string

const (
	TokenActionVerifyStatus TokenAction = "verify-status"
)

// 令牌被认领的原因
const (
	TokenUsedReasonDecision    = "decision"     // 联系人主动做出决定
	TokenUsedReasonExpiredAuto = "expired_auto" // 超时未决，Sweeper 自动认领
)

// VerificationToken 发给受托联系人的一次性核验令牌
// 明文不落库，只存 sha256 哈希；used_at 从 null 到非 null 的翻转
// 至多发生一次，是全系统唯一的并发敏感变更
type VerificationToken struct {
	BaseModel
	UserID        int64       `gorm:"not null;index" json:"user_id"`
	ContactEmail  string      `gorm:"type:varchar(320);not null" json:"contact_email"`
	TokenHash     string      `gorm:"type:char(64);not null;uniqueIndex" json:"-"`
	Action        TokenAction `gorm:"type:varchar(32);not null;default:'verify-status';index:idx_tokens_sweep" json:"action"`
	ExpiresAt     time.Time   `gorm:"type:timestamptz;not null;index:idx_tokens_sweep" json:"expires_at"`
	UsedAt        *time.Time  `gorm:"type:timestamptz;index:idx_tokens_sweep" json:"used_at,omitempty"`
	UsedReason    string      `gorm:"type:varchar(32)" json:"used_reason,omitempty"`
	UsedIP        string      `gorm:"type:varchar(64)" json:"used_ip,omitempty"`
	UsedUserAgent string      `gorm:"type:varchar(512)" json:"used_user_agent,omitempty"`
}

// TableName 指定表名
func (VerificationToken) TableName() string {
	return "verification_tokens"
}

// IsUsed 判断令牌是否已被认领
func (t *VerificationToken) IsUsed() bool {
	return t.UsedAt != nil
}

// IsExpired 判断令牌是否已过期
func (t *VerificationToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
