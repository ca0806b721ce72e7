package providers

import (
	"context"
	"sync"
)

// MockLLM is a scripted LLMClient for tests. Responses are returned in
// order; the last response repeats once the script is exhausted.
type MockLLM struct {
	mu        sync.Mutex
	Responses []string
	Errs      []error
	calls     int
}

// Chat returns the next scripted response.
func (m *MockLLM) Chat(_ context.Context, req *ChatRequest) (*ChatResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.calls
	m.calls++

	if idx < len(m.Errs) && m.Errs[idx] != nil {
		return nil, m.Errs[idx]
	}

	content := ""
	if len(m.Responses) > 0 {
		if idx >= len(m.Responses) {
			idx = len(m.Responses) - 1
		}
		content = m.Responses[idx]
	}
	return &ChatResult{
		Content:   content,
		Provider:  "mock",
		ModelUsed: req.Model,
		RequestID: req.RequestID,
	}, nil
}

// Name returns the mock identifier.
func (m *MockLLM) Name() string { return "mock" }

// Calls returns how many Chat calls were made.
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockVision is a canned VisionClient for tests.
type MockVision struct {
	Description string
	Err         error
}

// DescribeImage returns the canned description or error.
func (m *MockVision) DescribeImage(context.Context, []byte) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Description, nil
}

// Name returns the mock identifier.
func (m *MockVision) Name() string { return "mock-vision" }

// Verify interfaces
var (
	_ LLMClient    = (*MockLLM)(nil)
	_ VisionClient = (*MockVision)(nil)
)
