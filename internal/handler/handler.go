package handler

import (
	"StillHere/internal/service"
)

// Services 路由层用到的全部服务
type Services struct {
	Checkin      *service.CheckinService
	Message      *service.MessageService
	Contact      *service.ContactService
	Verification *service.VerificationService
	Escalation   *service.EscalationService
	Event        *service.EventService
}

var services Services

// Init 注入服务实例，server 启动时调用一次
func Init(s Services) {
	services = s
}
