package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockModel is an in-process model service for tests and the "mock"
// provider. Responses are matched by substring against the system prompt;
// unmatched calls get Default. FailFor forces a hard error for matching
// prompts so error paths can be exercised.
type MockModel struct {
	mu        sync.Mutex
	Responses map[string]string
	Default   string
	FailFor   []string
	Calls     int
}

func NewMockModel() *MockModel {
	return &MockModel{
		Responses: make(map[string]string),
		Default:   `{"confidence": 0.7, "recommendations": []}`,
	}
}

func (m *MockModel) Invoke(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, marker := range m.FailFor {
		if strings.Contains(systemPrompt, marker) || strings.Contains(userPrompt, marker) {
			return "", fmt.Errorf("mock model failure for %q", marker)
		}
	}
	for marker, response := range m.Responses {
		if strings.Contains(systemPrompt, marker) || strings.Contains(userPrompt, marker) {
			return response, nil
		}
	}
	return m.Default, nil
}
