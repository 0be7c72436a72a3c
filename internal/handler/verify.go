package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"StillHere/internal/service"
	"StillHere/pkg/response"
)

// VerifyStatusRequest 受托联系人的裁决请求
type VerifyStatusRequest struct {
	Token    string `json:"token"`
	Decision string `json:"decision"`
}

// VerifyStatus 处理联系人 confirm / deny 裁决
// POST /v1/verify-status
// 未鉴权接口：联系人只凭邮件里的一次性链接操作，无需账号
func VerifyStatus(ctx context.Context, c *app.RequestContext) {
	var req VerifyStatusRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	decision, err := service.ParseDecision(req.Decision)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	result, err := services.Verification.Decide(
		ctx,
		req.Token,
		decision,
		c.ClientIP(),
		string(c.UserAgent()),
	)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
