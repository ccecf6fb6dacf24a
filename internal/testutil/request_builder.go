package testutil

import (
	"github.com/hupe1980/evalharness/advisor"
	"github.com/hupe1980/evalharness/model"
)

// RequestBuilder provides a fluent helper for constructing conversations.
// Example:
//
//	req := NewRequestBuilder().System("be brief").User("hi").Assistant("hello").User("again").Build()
type RequestBuilder struct {
	messages []model.Message
	tools    []model.ToolDefinition
	opts     model.Options
}

// NewRequestBuilder creates an empty builder.
func NewRequestBuilder() *RequestBuilder { return &RequestBuilder{} }

// System appends a system message (chainable).
func (b *RequestBuilder) System(t string) *RequestBuilder {
	b.messages = append(b.messages, model.NewSystemMessage(t))
	return b
}

// User appends a user message (chainable).
func (b *RequestBuilder) User(t string) *RequestBuilder {
	b.messages = append(b.messages, model.NewUserMessage(t))
	return b
}

// Assistant appends an assistant message (chainable).
func (b *RequestBuilder) Assistant(t string) *RequestBuilder {
	b.messages = append(b.messages, model.NewAssistantMessage(t))
	return b
}

// ToolResult appends a tool message answering callID (chainable).
func (b *RequestBuilder) ToolResult(callID, t string) *RequestBuilder {
	b.messages = append(b.messages, model.NewToolMessage(callID, t))
	return b
}

// Tool declares a tool with an empty object schema (chainable).
func (b *RequestBuilder) Tool(name, description string) *RequestBuilder {
	b.tools = append(b.tools, model.ToolDefinition{
		Name:        name,
		Description: description,
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
	})
	return b
}

// Model sets the requested model id (chainable).
func (b *RequestBuilder) Model(name string) *RequestBuilder { b.opts.Model = name; return b }

// Build returns the model request. The builder can be reused.
func (b *RequestBuilder) Build() model.Request {
	return model.Request{
		Messages: append([]model.Message(nil), b.messages...),
		Tools:    append([]model.ToolDefinition(nil), b.tools...),
		Options:  b.opts,
	}.Clone()
}

// Envelope wraps Build in an advisor request with a fresh id.
func (b *RequestBuilder) Envelope() *advisor.Request {
	return advisor.NewRequest(b.Build())
}
