package middleware

import (
	"context"
	"crypto/subtle"

	"github.com/cloudwego/hertz/pkg/app"

	"StillHere/config"
	pkgerrors "StillHere/pkg/errors"
	"StillHere/pkg/response"
)

const internalTokenHeader = "X-Internal-Token"

// InternalJobMiddleware 调度器专用的共享密钥鉴权
// 任务接口不走用户会话，拿着部署时下发的密钥就能调
func InternalJobMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		provided := c.GetHeader(internalTokenHeader)
		expected := []byte(config.Cfg.InternalJobToken)

		if len(provided) == 0 ||
			subtle.ConstantTimeCompare(provided, expected) != 1 {
			response.Error(ctx, c, pkgerrors.InternalTokenInvalid)
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}
