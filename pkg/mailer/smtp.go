package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"
)

// ErrSMTPDisabled 表示配置关闭了邮件投递
var ErrSMTPDisabled = errors.New("smtp: delivery disabled")

// SMTPSettings SMTP 运行配置
type SMTPSettings struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
	Timeout  time.Duration
}

type smtpClient struct {
	cfg SMTPSettings
}

// NewSMTPClient 创建 SMTP 客户端
func NewSMTPClient(cfg SMTPSettings) Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &smtpClient{cfg: cfg}
}

func (m *smtpClient) Send(ctx context.Context, msg Message) (string, error) {
	if !m.cfg.Enabled {
		return "", ErrSMTPDisabled
	}

	to := strings.TrimSpace(msg.To)
	if to == "" {
		return "", errors.New("smtp: recipient address is required")
	}
	if _, err := mail.ParseAddress(to); err != nil {
		return "", fmt.Errorf("smtp: invalid recipient address %q: %w", to, err)
	}
	if _, err := mail.ParseAddress(m.cfg.From); err != nil {
		return "", fmt.Errorf("smtp: invalid from address: %w", err)
	}

	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprintf("%d", m.cfg.Port))

	dialer := net.Dialer{Timeout: m.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("smtp: dial %s: %w", addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(m.cfg.Timeout))
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("smtp: handshake: %w", err)
	}
	defer client.Close()

	if m.cfg.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
				return "", fmt.Errorf("smtp: starttls: %w", err)
			}
		}
	}

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return "", fmt.Errorf("smtp: auth: %w", err)
			}
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return "", fmt.Errorf("smtp: mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return "", fmt.Errorf("smtp: rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return "", fmt.Errorf("smtp: data: %w", err)
	}

	messageID := fmt.Sprintf("<%d.stillhere@%s>", time.Now().UnixNano(), m.cfg.Host)
	payload := buildPayload(m.cfg.From, to, msg.Subject, msg.Body, messageID)

	if _, err := w.Write([]byte(payload)); err != nil {
		return "", fmt.Errorf("smtp: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("smtp: close body: %w", err)
	}

	if err := client.Quit(); err != nil {
		return "", fmt.Errorf("smtp: quit: %w", err)
	}

	return messageID, nil
}

func buildPayload(from, to, subject, body, messageID string) string {
	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("Message-ID: " + messageID + "\r\n")
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")
	return sb.String()
}
