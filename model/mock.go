package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type mockReply struct {
	resp *Response
	err  error
}

// MockModel is a lightweight in‑memory Model useful for tests & examples.
// Replies are served from the script queue first, then from canned
// prompt→completion pairs, falling back to an echo of the last user message.
type MockModel struct {
	info Info

	mu        sync.Mutex
	responses map[string]string
	script    []mockReply
	requests  []Request
	fallback  func(Request) string
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt
// (matched against the last user message).
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Script queues text completions returned in order by subsequent calls.
func (m *MockModel) Script(texts ...string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range texts {
		m.script = append(m.script, mockReply{resp: NewTextResponse(t)})
	}
	return m
}

// ScriptResponse queues a full response (e.g. one carrying tool calls).
func (m *MockModel) ScriptResponse(resp Response) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockReply{resp: &resp})
	return m
}

// Fallback replaces the echo reply used when neither the script nor the
// canned responses match.
func (m *MockModel) Fallback(fn func(req Request) string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = fn
	return m
}

// ScriptError queues a generation failure.
func (m *MockModel) ScriptError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockReply{err: err})
	return m
}

// Requests returns copies of all requests received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	for i, r := range m.requests {
		out[i] = r.Clone()
	}
	return out
}

// Calls returns the number of Generate invocations.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *MockModel) next(req Request) mockReply {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req.Clone())

	if len(m.script) > 0 {
		r := m.script[0]
		m.script = m.script[1:]
		return r
	}

	var inputText string
	if idx := req.LastUserMessageIndex(); idx >= 0 {
		inputText = req.Messages[idx].Content
	}
	full, ok := m.responses[inputText]
	switch {
	case ok:
	case m.fallback != nil:
		full = m.fallback(req)
	default:
		full = fmt.Sprintf("Mock response to: %s", inputText)
	}
	return mockReply{resp: NewTextResponse(full)}
}

// Generate implements Model; emits optional streaming char chunks then final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	reply := m.next(req)

	go func() {
		defer close(respCh)
		defer close(errCh)
		if reply.err != nil {
			errCh <- reply.err
			return
		}
		final := *reply.resp
		final.Partial = false
		if final.ID == "" {
			final.ID = "mock-" + uuid.NewString()
		}
		if req.Stream {
			for _, r := range final.Text() {
				chunk := Response{
					ID:      final.ID,
					Partial: true,
					Results: []Result{{Message: NewAssistantMessage(string(r))}},
				}
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- chunk:
				}
			}
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- final:
		}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
