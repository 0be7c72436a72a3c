package model

import "time"

// MessageStatus 留言状态枚举
type MessageStatus string

const (
	MessageStatusDraft     MessageStatus = "draft"     // 草稿，不参与投递
	MessageStatusScheduled MessageStatus = "scheduled" // 待投递
	MessageStatusDelivered MessageStatus = "delivered" // 已投递，至多发生一次
)

// MessageKind 留言内容类型枚举
type MessageKind string

const (
	MessageKindText  MessageKind = "text"
	MessageKindAudio MessageKind = "audio"
	MessageKindVideo MessageKind = "video"
)

// Message 用户预先写好的留言
// delivered 状态只能经由条件更新从 scheduled 翻转而来，保证至多投递一次
type Message struct {
	BaseModel
	PublicID       string        `gorm:"type:char(36);not null;uniqueIndex" json:"public_id"`
	UserID         int64         `gorm:"not null;index:idx_messages_user_status" json:"user_id"`
	Title          string        `gorm:"type:varchar(200);not null" json:"title"`
	Body           string        `gorm:"type:text" json:"body"`
	Kind           MessageKind   `gorm:"type:varchar(16);not null;default:'text'" json:"kind"`
	MediaKey       string        `gorm:"type:varchar(512)" json:"media_key,omitempty"` // 音视频对象存储键，具体存储由外部负责
	RecipientName  string        `gorm:"type:varchar(100)" json:"recipient_name"`
	RecipientEmail string        `gorm:"type:varchar(320)" json:"recipient_email"`
	Status         MessageStatus `gorm:"type:varchar(16);not null;default:'draft';index:idx_messages_user_status" json:"status"`
	DeliveredAt    *time.Time    `gorm:"type:timestamptz" json:"delivered_at,omitempty"`
	// DeliveredMessageID 送信通道返回的消息标识，用于排查
	DeliveredMessageID string `gorm:"type:varchar(255)" json:"delivered_message_id,omitempty"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}

// DeliveryMode 投递模式枚举
type DeliveryMode string

const (
	DeliveryModeDate    DeliveryMode = "date"    // 固定日期投递
	DeliveryModeCheckin DeliveryMode = "checkin" // 打卡断联后投递
)

// DeliveryRule 每条留言一条的投递规则
// checkin 模式的多条留言共享用户唯一的 Checkin 计时器
type DeliveryRule struct {
	BaseModel
	MessageID           int64        `gorm:"not null;uniqueIndex" json:"message_id"`
	UserID              int64        `gorm:"not null;index" json:"user_id"`
	Mode                DeliveryMode `gorm:"type:varchar(16);not null;index" json:"mode"`
	DeliverOn           *time.Time   `gorm:"type:date" json:"deliver_on,omitempty"`
	CheckinIntervalDays int          `gorm:"type:smallint;not null;default:0" json:"checkin_interval_days,omitempty"`
}

// TableName 指定表名
func (DeliveryRule) TableName() string {
	return "delivery_rules"
}
