package mock

import (
	"context"
	"sync"

	"github.com/ragware/ragloop/ai"
)

// MockGenerator is a test double for ai.Generator.
// It allows custom behavior injection via a function field or a scripted
// queue of responses for multi-turn interactions.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, scripted responses are consumed, then the default response.
	GenerateFunc func(ctx context.Context, system []string, user []string, opts ...ai.GenerateOption) (string, error)

	// DefaultResponse is returned when no script and no GenerateFunc is set.
	DefaultResponse string

	mu        sync.Mutex
	script    []scripted
	callCount int
}

type scripted struct {
	response string
	err      error
}

// NewMockGenerator creates a mock generator that echoes a fixed default
// response until behavior is injected.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{DefaultResponse: "mock response"}
}

// Enqueue appends a scripted response. Responses are consumed in order,
// one per Generate call, before falling back to DefaultResponse.
func (m *MockGenerator) Enqueue(response string) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{response: response})
	return m
}

// EnqueueError appends a scripted error.
func (m *MockGenerator) EnqueueError(err error) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{err: err})
	return m
}

// Generate returns the next scripted response, or calls GenerateFunc if set.
func (m *MockGenerator) Generate(ctx context.Context, system []string, user []string, opts ...ai.GenerateOption) (string, error) {
	m.mu.Lock()
	m.callCount++
	if m.GenerateFunc != nil {
		fn := m.GenerateFunc
		m.mu.Unlock()
		return fn(ctx, system, user, opts...)
	}
	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		m.mu.Unlock()
		return next.response, next.err
	}
	m.mu.Unlock()
	return m.DefaultResponse, nil
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count, the script, and injected behavior.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.script = nil
	m.GenerateFunc = nil
}
