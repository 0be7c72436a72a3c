package middleware

import (
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"StillHere/pkg/logger"
)

// Init 初始化所有中间件
func Init() error {
	if err := initAuthMiddleware(); err != nil {
		logger.Logger.Error("Failed to initialize auth middleware", zap.Error(err))
		return err
	}

	// OpenTelemetryMiddleware 依赖这些指标句柄，必须在注册路由前初始化
	if err := InitMetrics(otel.Meter("stillhere-http")); err != nil {
		logger.Logger.Error("Failed to initialize HTTP metrics", zap.Error(err))
		return err
	}

	logger.Logger.Info("All middlewares initialized successfully")
	return nil
}
