package mailer

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type MockCall struct {
	To      string
	Subject string
	Body    string
}

// MockClient 可配置的邮件客户端 mock，实现 Client 接口
type MockClient struct {
	mu    sync.Mutex
	Calls []MockCall

	// FailNext 置为 true 时，下一次调用返回 mock 错误并自动复位
	FailNext bool
	// FailFor 命中的收件地址每次都失败
	FailFor map[string]bool
}

func NewMockClient() *MockClient {
	return &MockClient{
		Calls:   make([]MockCall, 0),
		FailFor: make(map[string]bool),
	}
}

func (m *MockClient) Send(ctx context.Context, msg Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext {
		m.FailNext = false
		return "", errors.New("mock mail send failure")
	}
	if m.FailFor[msg.To] {
		return "", errors.New("mock mail send failure for " + msg.To)
	}

	m.Calls = append(m.Calls, MockCall{
		To:      msg.To,
		Subject: msg.Subject,
		Body:    msg.Body,
	})

	return fmt.Sprintf("mock-message-%d", len(m.Calls)), nil
}

// SentTo 返回发送给指定地址的邮件数
func (m *MockClient) SentTo(addr string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, call := range m.Calls {
		if call.To == addr {
			n++
		}
	}
	return n
}
