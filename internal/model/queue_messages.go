package model

// ReminderDispatchMessage 打卡提醒投递消息
// Escalation Engine 落库推进后发布，worker 消费并实际发信
type ReminderDispatchMessage struct {
	MessageID string `json:"message_id"`
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	Attempt   int    `json:"attempt"`
	DueAt     string `json:"due_at"`

	ScheduledAt  string `json:"scheduled_at"`
	DelaySeconds int    `json:"delay_seconds"`
}

// AuditEventMessage 审计事件总线消息（fire-and-forget）
type AuditEventMessage struct {
	EventID    int64                  `json:"event_id"`
	UserID     int64                  `json:"user_id"`
	EventType  string                 `json:"event_type"`
	Decision   *string                `json:"decision,omitempty"`
	OccurredAt string                 `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}
