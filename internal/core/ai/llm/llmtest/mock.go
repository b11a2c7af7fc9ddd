// Package llmtest 提供測試用的 Completer
package llmtest

import (
	"context"

	"nutrition-api/internal/core/ai/llm"

	"github.com/stretchr/testify/mock"
)

// MockCompleter testify mock 實作的 llm.Completer
type MockCompleter struct {
	mock.Mock
}

// Complete 回傳預先設定的結果
func (m *MockCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	args := m.Called(ctx, req)
	completion, _ := args.Get(0).(*llm.Completion)
	return completion, args.Error(1)
}

// Reply 包裝成模型回應
func Reply(content string) *llm.Completion {
	return &llm.Completion{Content: content, Model: "test-model"}
}

// Requests 取出所有呼叫的請求，依呼叫順序
func (m *MockCompleter) Requests() []llm.Request {
	reqs := make([]llm.Request, 0, len(m.Calls))
	for _, call := range m.Calls {
		if req, ok := call.Arguments.Get(1).(llm.Request); ok {
			reqs = append(reqs, req)
		}
	}
	return reqs
}
