package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"StillHere/internal/handler"
	"StillHere/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	v1 := h.Group("/v1")

	// 联系人核验接口：未鉴权，凭邮件链接访问
	v1.POST("/verify-status", middleware.VerifyStatusRateLimitMiddleware(), handler.VerifyStatus)

	// 打卡路由
	checkIns := v1.Group("/check-ins")
	checkIns.Use(middleware.AuthMiddleware())
	{
		checkIns.POST("/confirm", handler.ConfirmCheckin)
		checkIns.GET("/status", handler.GetCheckinStatus)
		checkIns.PUT("/settings", handler.UpdateCheckinSettings)
		checkIns.GET("/events", handler.ListCheckinEvents)
	}

	// 留言路由
	messages := v1.Group("/messages")
	messages.Use(middleware.AuthMiddleware())
	{
		messages.GET("", handler.ListMessages)
		messages.POST("", handler.CreateMessage)
		messages.GET("/:message_id", handler.GetMessage)
		messages.PUT("/:message_id", handler.UpdateMessage)
		messages.POST("/:message_id/schedule", handler.ScheduleMessage)
		messages.DELETE("/:message_id", handler.DeleteMessage)
	}

	// 受托联系人路由
	contacts := v1.Group("/contacts")
	contacts.Use(middleware.AuthMiddleware())
	{
		contacts.GET("", handler.ListContacts)
		contacts.POST("", handler.CreateContact)
		contacts.DELETE("/:contact_id", handler.DeleteContact)
	}

	// 调度器任务路由：共享密钥鉴权，不走用户会话
	jobs := v1.Group("/internal/jobs")
	jobs.Use(middleware.InternalJobMiddleware())
	{
		jobs.POST("/escalation-sweep", handler.RunEscalationSweep)
		jobs.POST("/expiry-sweep", handler.RunExpirySweep)
	}
}
