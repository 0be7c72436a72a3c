package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"StillHere/internal/middleware"
	"StillHere/internal/model"
	"StillHere/internal/service"
	pkgerrors "StillHere/pkg/errors"
	"StillHere/pkg/response"
)

// MessageRequest 留言创建/更新请求
type MessageRequest struct {
	Title          string `json:"title"`
	Body           string `json:"body"`
	Kind           string `json:"kind"`
	MediaKey       string `json:"media_key"`
	RecipientName  string `json:"recipient_name"`
	RecipientEmail string `json:"recipient_email"`

	DeliveryMode        string `json:"delivery_mode"`
	DeliverOn           string `json:"deliver_on"`
	CheckinIntervalDays int    `json:"checkin_interval_days"`
}

func (r *MessageRequest) toInput() (service.MessageInput, error) {
	in := service.MessageInput{
		Title:               r.Title,
		Body:                r.Body,
		Kind:                model.MessageKind(r.Kind),
		MediaKey:            r.MediaKey,
		RecipientName:       r.RecipientName,
		RecipientEmail:      r.RecipientEmail,
		Mode:                model.DeliveryMode(r.DeliveryMode),
		CheckinIntervalDays: r.CheckinIntervalDays,
	}
	if r.DeliverOn != "" {
		t, err := time.Parse("2006-01-02", r.DeliverOn)
		if err != nil {
			return in, err
		}
		in.DeliverOn = &t
	}
	return in, nil
}

// CreateMessage 新建留言（草稿态）
// POST /v1/messages
func CreateMessage(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.InvalidUserID)
		return
	}

	var req MessageRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	in, err := req.toInput()
	if err != nil {
		response.BindError(ctx, c, err)
		return
	}

	msg, err := services.Message.Create(ctx, userID,
		middleware.GetUserEmail(ctx, c),
		middleware.GetUserPlan(ctx, c),
		in,
	)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, msg)
}

// ListMessages 列出当前用户的全部留言
// GET /v1/messages
func ListMessages(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.InvalidUserID)
		return
	}

	messages, err := services.Message.List(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, messages)
}

// GetMessage 查询单条留言
// GET /v1/messages/:message_id
func GetMessage(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.InvalidUserID)
		return
	}

	msg, err := services.Message.Get(ctx, userID, c.Param("message_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, msg)
}

// UpdateMessage 编辑草稿
// PUT /v1/messages/:message_id
func UpdateMessage(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.InvalidUserID)
		return
	}

	var req MessageRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	in, err := req.toInput()
	if err != nil {
		response.BindError(ctx, c, err)
		return
	}

	msg, err := services.Message.UpdateDraft(ctx, userID, c.Param("message_id"), in)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, msg)
}

// ScheduleMessage 草稿转入待投递
// POST /v1/messages/:message_id/schedule
func ScheduleMessage(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.InvalidUserID)
		return
	}

	msg, err := services.Message.Schedule(ctx, userID, c.Param("message_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, msg)
}

// DeleteMessage 删除留言及其投递规则
// DELETE /v1/messages/:message_id
func DeleteMessage(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.InvalidUserID)
		return
	}

	if err := services.Message.Delete(ctx, userID, c.Param("message_id")); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}
