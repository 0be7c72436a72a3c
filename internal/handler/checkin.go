package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"StillHere/internal/middleware"
	pkgerrors "StillHere/pkg/errors"
	"StillHere/pkg/response"
)

// ConfirmCheckin 用户确认存活
// POST /v1/check-ins/confirm
func ConfirmCheckin(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.InvalidUserID)
		return
	}

	checkin, err := services.Checkin.Confirm(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, checkin)
}

// GetCheckinStatus 查询计时器状态
// GET /v1/check-ins/status
func GetCheckinStatus(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.InvalidUserID)
		return
	}

	checkin, err := services.Checkin.Status(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, checkin)
}

// UpdateCheckinSettingsRequest 打卡间隔设置
type UpdateCheckinSettingsRequest struct {
	IntervalDays int `json:"interval_days"`
}

// UpdateCheckinSettings 调整打卡间隔，取值受订阅档位约束
// PUT /v1/check-ins/settings
func UpdateCheckinSettings(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.InvalidUserID)
		return
	}

	var req UpdateCheckinSettingsRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	checkin, err := services.Checkin.UpdateSettings(ctx, userID, req.IntervalDays)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, checkin)
}

// ListCheckinEvents 查询用户的审计事件轨迹
// GET /v1/check-ins/events
func ListCheckinEvents(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.InvalidUserID)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := services.Event.ListByUser(ctx, userID, limit)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, events)
}
