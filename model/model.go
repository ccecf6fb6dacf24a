package model

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoResponse is returned by Collect when a model finished without a final response.
var ErrNoResponse = errors.New("model produced no final response")

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is one generated candidate.
type Result struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	ID      string      `json:"id"`
	Partial bool        `json:"partial"`
	Results []Result    `json:"results"`
	Usage   *TokenUsage `json:"usage,omitempty"`
}

// NewTextResponse builds a final response with a single assistant result.
func NewTextResponse(text string) *Response {
	return &Response{Results: []Result{{Message: NewAssistantMessage(text), FinishReason: "stop"}}}
}

// Result returns the primary result or nil when the response carries none.
func (r *Response) Result() *Result {
	if r == nil || len(r.Results) == 0 {
		return nil
	}
	return &r.Results[0]
}

// Text returns the text of the primary result, or "".
func (r *Response) Text() string {
	if res := r.Result(); res != nil {
		return res.Message.Content
	}
	return ""
}

// HasToolCalls reports whether any result asks for a tool invocation.
func (r *Response) HasToolCalls() bool {
	if r == nil {
		return false
	}
	for _, res := range r.Results {
		if len(res.Message.ToolCalls) > 0 {
			return true
		}
	}
	return false
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "gemini", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by advisors and chat clients to drive generation.
// Implementations emit partial chunks only when req.Stream is set and always finish with a
// single non-partial response before closing the channels.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Collect drains the channels returned by Generate and returns the final
// (non-partial) response.
func Collect(ctx context.Context, respCh <-chan Response, errCh <-chan error) (*Response, error) {
	var final *Response
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if !resp.Partial {
				r := resp
				final = &r
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return nil, err
			}
		}
	}
	if final == nil {
		return nil, ErrNoResponse
	}
	return final, nil
}

// Call is a convenience for a blocking, non-streaming generation.
func Call(ctx context.Context, m Model, req Request) (*Response, error) {
	req.Stream = false
	respCh, errCh := m.Generate(ctx, req)
	resp, err := Collect(ctx, respCh, errCh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Info().Provider, err)
	}
	return resp, nil
}
