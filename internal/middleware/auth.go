package middleware

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/jwt"

	"StillHere/internal/model"
	"StillHere/pkg/token"
)

const (
	IdentityKey = token.IdentityKey

	emailClaim = "email"
	planClaim  = "plan"
)

var authMiddleware *jwt.HertzJWTMiddleware

func initAuthMiddleware() error {
	sharedGenerator := token.GetGenerator()
	if sharedGenerator == nil {
		return fmt.Errorf("token generator not initialized, call token.Init() first")
	}

	// 账号体系在外部，这里只是验签加取身份
	authMiddleware = &jwt.HertzJWTMiddleware{
		Realm:       "StillHere API",
		Key:         sharedGenerator.Key,
		Timeout:     sharedGenerator.Timeout,
		MaxRefresh:  sharedGenerator.MaxRefresh,
		IdentityKey: sharedGenerator.IdentityKey,
		TimeFunc:    sharedGenerator.TimeFunc,

		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			claims := jwt.ExtractClaims(ctx, c)
			uid, ok := claims[IdentityKey].(string)
			if !ok {
				if uidFloat, ok := claims[IdentityKey].(float64); ok {
					uid = fmt.Sprintf("%.0f", uidFloat)
				} else {
					return nil
				}
			}
			return uid
		},

		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			c.JSON(code, map[string]interface{}{
				"error": map[string]interface{}{
					"code":    "UNAUTHORIZED",
					"message": message,
				},
			})
		},

		TokenLookup:   "header: Authorization",
		TokenHeadName: "Bearer",
	}

	return nil
}

func AuthMiddleware() app.HandlerFunc {
	if authMiddleware == nil {
		panic("AuthMiddleware not initialized, call Init() first")
	}
	return authMiddleware.MiddlewareFunc()
}

// GetUserID 从请求上下文中取用户ID
func GetUserID(ctx context.Context, c *app.RequestContext) (int64, bool) {
	raw, exists := c.Get(IdentityKey)
	if !exists {
		return 0, false
	}

	str, ok := raw.(string)
	if !ok {
		return 0, false
	}

	id, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// GetUserEmail 取外部账号体系签进 JWT 的通知地址
func GetUserEmail(ctx context.Context, c *app.RequestContext) string {
	claims := jwt.ExtractClaims(ctx, c)
	if email, ok := claims[emailClaim].(string); ok {
		return email
	}
	return ""
}

// GetUserPlan 取 JWT 携带的订阅档位快照，缺省按 free
func GetUserPlan(ctx context.Context, c *app.RequestContext) model.Plan {
	claims := jwt.ExtractClaims(ctx, c)
	if plan, ok := claims[planClaim].(string); ok && plan != "" {
		return model.Plan(plan)
	}
	return model.PlanFree
}
