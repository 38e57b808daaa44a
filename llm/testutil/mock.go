// Package testutil provides test utilities for the llm package.
// It includes mock implementations for testing completion client interactions.
package testutil

import (
	"context"
	"sync"

	"github.com/leadscout/leadscout/llm"
)

// MockClient is a thread-safe mock completion client for testing.
// It captures the requests passed to Complete() and returns configured responses.
//
// Usage:
//
//	// Single response mock
//	mock := &testutil.MockClient{
//	    Responses: []*llm.Response{
//	        {Content: `[{"action":"discover","params":{}}]`, Model: "test-model"},
//	    },
//	}
//
//	// Error response
//	mock := &testutil.MockClient{
//	    Err: errors.New("connection failed"),
//	}
type MockClient struct {
	mu            sync.Mutex
	requests      []llm.Request
	Responses     []*llm.Response // Responses to return in sequence
	Err           error           // Error to return (takes precedence over Responses)
	callCount     int
	responseIndex int
}

// Complete returns the next response from Responses, or Err if set.
// It records the request for verification in tests.
func (m *MockClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	m.callCount++

	if m.Err != nil {
		return nil, m.Err
	}

	if m.responseIndex < len(m.Responses) {
		resp := m.Responses[m.responseIndex]
		m.responseIndex++
		return resp, nil
	}

	// Default response if no responses configured
	return &llm.Response{Content: "", Model: "test-model"}, nil
}

// Requests returns a copy of the requests passed to Complete().
func (m *MockClient) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns the number of times Complete() was called.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset resets the mock's state (call count, requests, and response index).
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.responseIndex = 0
	m.requests = nil
}
