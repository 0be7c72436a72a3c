package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// EventType 审计事件类型枚举
type EventType string

const (
	EventCheckinReminderSent    EventType = "checkin_reminder_sent"
	EventCheckinConfirmed       EventType = "checkin_confirmed"
	EventTrustedContactNotified EventType = "trusted_contact_notified"
	EventTokenExpired           EventType = "token_expired"
	EventDecisionConfirm        EventType = "decision_confirm"
	EventDecisionDeny           EventType = "decision_deny"
	EventMessagesReleasedAuto   EventType = "messages_released_auto"
)

// ConfirmationEvent 只追加的审计事件
// Decision 为空表示系统驱动的事件（比如令牌超时自动认领）；行写入后不再更新
type ConfirmationEvent struct {
	CreatedAt        time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           int64     `gorm:"not null;index" json:"user_id"`
	ContactEmail     string    `gorm:"type:varchar(320)" json:"contact_email,omitempty"`
	TokenID          *int64    `gorm:"index" json:"token_id,omitempty"`
	Type             EventType `gorm:"type:varchar(40);not null;index" json:"type"`
	Decision         *string   `gorm:"type:varchar(16)" json:"decision,omitempty"`
	RequestIP        string    `gorm:"type:varchar(64)" json:"request_ip,omitempty"`
	RequestUserAgent string    `gorm:"type:varchar(512)" json:"request_user_agent,omitempty"`
	Detail           JSONB     `gorm:"type:jsonb" json:"detail,omitempty"`
}

// TableName 指定表名
func (ConfirmationEvent) TableName() string {
	return "confirmation_events"
}

// JSONB 自定义 JSONB 类型
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal JSONB value")
	}
	return json.Unmarshal(bytes, j)
}
