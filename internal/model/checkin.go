package model

import "time"

// CheckinStatus 打卡状态枚举
type CheckinStatus string

const (
	CheckinStatusActive          CheckinStatus = "active"           // 正常，等待下次确认
	CheckinStatusPending         CheckinStatus = "pending"          // 已逾期，提醒中
	CheckinStatusConfirmedAbsent CheckinStatus = "confirmed_absent" // 升级完毕，等待联系人核验或已放行
)

// Checkin 每个用户一条的存活计时器记录
// 用户确认存活或联系人否认缺席时 attempts 归零、status 回到 active；
// 记录只更新，从不删除
type Checkin struct {
	BaseModel
	UserID          int64         `gorm:"not null;uniqueIndex" json:"user_id"`
	// UserEmail 注册时的通知地址快照，档案系统在外部，提醒只依赖这一列
	UserEmail       string        `gorm:"type:varchar(320);not null" json:"user_email"`
	Status          CheckinStatus `gorm:"type:varchar(24);not null;default:'active';index:idx_checkins_status_due" json:"status"`
	LastConfirmedAt *time.Time    `gorm:"type:timestamptz" json:"last_confirmed_at,omitempty"`
	NextDueAt       time.Time     `gorm:"type:timestamptz;not null;index:idx_checkins_status_due" json:"next_due_at"`
	Attempts        int           `gorm:"type:smallint;not null;default:0" json:"attempts"`
	IntervalDays    int           `gorm:"type:smallint;not null;default:30" json:"interval_days"`
	// Plan 快照决定 maxReminders 和可选的打卡间隔
	Plan Plan `gorm:"type:varchar(16);not null;default:'free'" json:"plan"`
}

// TableName 指定表名
func (Checkin) TableName() string {
	return "checkins"
}
