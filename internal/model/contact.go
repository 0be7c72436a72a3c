package model

// TrustedContact 受托联系人
// MessageID 为空表示"档案级"联系人，作为兜底；
// 非空表示仅对某条留言生效，解析联系人时优先取留言级
type TrustedContact struct {
	BaseModel
	UserID    int64  `gorm:"not null;index:idx_trusted_contacts_user" json:"user_id"`
	MessageID *int64 `gorm:"index" json:"message_id,omitempty"`
	Name      string `gorm:"type:varchar(100);not null" json:"name"`
	Email     string `gorm:"type:varchar(320);not null" json:"email"`
}

// TableName 指定表名
func (TrustedContact) TableName() string {
	return "trusted_contacts"
}
