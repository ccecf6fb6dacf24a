package testutil

import (
	"github.com/hupe1980/evalharness/advisor"
	"github.com/hupe1980/evalharness/model"
)

// ResponseBuilder constructs model responses for tests.
// Example:
//
//	resp := NewResponseBuilder().Text("done").ToolCall("search", `{"q":"go"}`).Build()
type ResponseBuilder struct {
	id        string
	text      string
	toolCalls []model.ToolCall
	empty     bool
}

// NewResponseBuilder creates a builder producing a single assistant result.
func NewResponseBuilder() *ResponseBuilder { return &ResponseBuilder{id: "resp-test"} }

// ID overrides the response id (chainable).
func (b *ResponseBuilder) ID(id string) *ResponseBuilder { b.id = id; return b }

// Text sets the assistant text (chainable).
func (b *ResponseBuilder) Text(t string) *ResponseBuilder { b.text = t; return b }

// ToolCall adds a tool invocation with JSON encoded args (chainable).
func (b *ResponseBuilder) ToolCall(name, args string) *ResponseBuilder {
	b.toolCalls = append(b.toolCalls, model.ToolCall{ID: "call-" + name, Name: name, Arguments: args})
	return b
}

// Empty drops all results, producing a response without a usable result (chainable).
func (b *ResponseBuilder) Empty() *ResponseBuilder { b.empty = true; return b }

// Build returns the model response.
func (b *ResponseBuilder) Build() model.Response {
	resp := model.Response{ID: b.id}
	if b.empty {
		return resp
	}
	msg := model.NewAssistantMessage(b.text)
	msg.ToolCalls = append([]model.ToolCall(nil), b.toolCalls...)
	finish := "stop"
	if len(b.toolCalls) > 0 {
		finish = "tool_calls"
	}
	resp.Results = []model.Result{{Message: msg, FinishReason: finish}}
	return resp
}

// Envelope wraps Build in an advisor response.
func (b *ResponseBuilder) Envelope() *advisor.Response {
	resp := b.Build()
	return &advisor.Response{Model: &resp, Context: map[string]any{}}
}
