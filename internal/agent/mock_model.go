package agent

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// MockTextGenerator 测试用文本生成器，记录调用次数并返回预置响应
type MockTextGenerator struct {
	mu              sync.Mutex
	Responses       []string
	Err             error
	CallCount       int
	LastMessages    []*schema.Message
	LastTemperature float32
}

// GenerateText 返回预置响应；多个响应按调用次序轮流给出
func (m *MockTextGenerator) GenerateText(ctx context.Context, messages []*schema.Message, temperature float32) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	m.LastMessages = messages
	m.LastTemperature = temperature

	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	idx := m.CallCount - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}
