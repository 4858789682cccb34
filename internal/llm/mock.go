package llm

import (
	"context"
	"strings"
	"sync"
)

// MockCompleter 返回预置响应，用于本地运行和测试
type MockCompleter struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

// NewMockCompleter 没有预置响应时返回空的关键词 JSON
func NewMockCompleter(responses ...string) *MockCompleter {
	return &MockCompleter{responses: responses}
}

// WithError 之后的调用都返回该错误
func (m *MockCompleter) WithError(err error) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Complete 按顺序返回预置响应，用完后重复最后一条
func (m *MockCompleter) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	switch len(m.responses) {
	case 0:
		return `{"technical_skills": [], "soft_skills": [], "tools_technologies": [], "keywords_frequency": {}}`, nil
	case 1:
		return m.responses[0], nil
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

// Prompts 已收到的提示词
func (m *MockCompleter) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// LastPromptContains 最后一次提示词是否包含 s
func (m *MockCompleter) LastPromptContains(s string) bool {
	p := m.Prompts()
	return len(p) > 0 && strings.Contains(p[len(p)-1], s)
}
