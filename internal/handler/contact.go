package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"StillHere/internal/middleware"
	pkgerrors "StillHere/pkg/errors"
	"StillHere/pkg/response"
)

// ContactRequest 登记联系人请求
// message_id 为空表示档案级兜底联系人
type ContactRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	MessageID string `json:"message_id"`
}

// CreateContact 登记受托联系人
// POST /v1/contacts
func CreateContact(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.InvalidUserID)
		return
	}

	var req ContactRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	contact, err := services.Contact.Add(ctx, userID, req.Name, req.Email, req.MessageID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, contact)
}

// ListContacts 列出当前用户的受托联系人
// GET /v1/contacts
func ListContacts(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.InvalidUserID)
		return
	}

	contacts, err := services.Contact.List(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, contacts)
}

// DeleteContact 移除受托联系人
// DELETE /v1/contacts/:contact_id
func DeleteContact(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.InvalidUserID)
		return
	}

	contactID, err := strconv.ParseInt(c.Param("contact_id"), 10, 64)
	if err != nil {
		response.Error(ctx, c, pkgerrors.ContactNotFound)
		return
	}

	if err := services.Contact.Remove(ctx, userID, contactID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}
