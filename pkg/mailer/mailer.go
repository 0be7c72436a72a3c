package mailer

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"StillHere/config"
	"StillHere/pkg/logger"
)

// Message 一封待发送的邮件
type Message struct {
	To      string
	Subject string
	Body    string
}

// Client 邮件客户端接口，核心引擎只依赖这一个发送动作
type Client interface {
	// Send 发送一封邮件，返回通道侧的消息标识
	Send(ctx context.Context, msg Message) (string, error)
}

var (
	mailClient Client
	mailOnce   sync.Once
)

// Init 初始化邮件客户端
func Init() error {
	var initErr error
	mailOnce.Do(func() {
		cfg := config.Cfg

		mailClient = NewSMTPClient(SMTPSettings{
			Enabled:  cfg.SMTPEnabled,
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			UseTLS:   cfg.SMTPUseTLS,
		})

		logger.Logger.Info("Mail client initialized successfully",
			zap.String("host", cfg.SMTPHost),
			zap.Bool("enabled", cfg.SMTPEnabled),
		)
	})

	return initErr
}

// SetClient 替换全局客户端（worker 测试时注入 mock）
func SetClient(c Client) {
	mailClient = c
}

func GetClient() Client {
	if mailClient == nil {
		panic("mail client not initialized, call mailer.Init() first")
	}
	return mailClient
}

func Send(ctx context.Context, msg Message) (string, error) {
	return GetClient().Send(ctx, msg)
}
