package engine

import (
	"context"
	"sync"

	"github.com/fluxofin/dreflow/internal/llm"
)

// MockClassifier is a scripted llm.Client for tests.
type MockClassifier struct {
	Err       error
	Responses map[string]llm.ClassifyResponse // keyed by description
	Default   llm.ClassifyResponse
	mu        sync.Mutex
	calls     int
}

// Classify returns the scripted response for the request's description.
func (m *MockClassifier) Classify(_ context.Context, req llm.ClassifyRequest) (llm.ClassifyResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return llm.ClassifyResponse{}, m.Err
	}
	if resp, ok := m.Responses[req.Description]; ok {
		return resp, nil
	}
	return m.Default, nil
}

// Calls reports how many times Classify was invoked.
func (m *MockClassifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
