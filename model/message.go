package model

import "strings"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Label returns the upper-case role name used when a conversation is rendered as text.
func (r Role) Label() string { return strings.ToUpper(string(r)) }

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON encoded arguments
}

// Message is a single conversation turn.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // set on RoleTool messages
}

// NewSystemMessage returns a system message.
func NewSystemMessage(text string) Message { return Message{Role: RoleSystem, Content: text} }

// NewUserMessage returns a user message.
func NewUserMessage(text string) Message { return Message{Role: RoleUser, Content: text} }

// NewAssistantMessage returns an assistant message.
func NewAssistantMessage(text string) Message { return Message{Role: RoleAssistant, Content: text} }

// NewToolMessage returns the result of a tool call.
func NewToolMessage(callID, text string) Message {
	return Message{Role: RoleTool, Content: text, ToolCallID: callID}
}

func (m Message) clone() Message {
	if m.ToolCalls != nil {
		m.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	}
	return m
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Options are per-request execution settings. Zero values mean "use the
// provider default".
type Options struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int64    `json:"max_tokens,omitempty"`
}

// Request captures the normalized model input: an ordered message list plus
// execution options.
type Request struct {
	Messages []Message        `json:"messages"`
	Options  Options          `json:"options"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Stream   bool             `json:"stream,omitempty"`
}

// SystemMessage returns the designated system message (the first system-role message).
func (r Request) SystemMessage() (Message, bool) {
	for _, m := range r.Messages {
		if m.Role == RoleSystem {
			return m, true
		}
	}
	return Message{}, false
}

// LastUserMessageIndex returns the index of the most recent user message or -1.
func (r Request) LastUserMessageIndex() int {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the request; the copy shares no slices with r.
func (r Request) Clone() Request {
	out := r
	if r.Messages != nil {
		out.Messages = make([]Message, len(r.Messages))
		for i, m := range r.Messages {
			out.Messages[i] = m.clone()
		}
	}
	if r.Tools != nil {
		out.Tools = append([]ToolDefinition(nil), r.Tools...)
	}
	if r.Options.Temperature != nil {
		t := *r.Options.Temperature
		out.Options.Temperature = &t
	}
	return out
}

// AugmentLastUserMessage returns a copy of r whose most recent user message
// text is replaced by fn(text). When r has no user message, fn("") is appended
// as a new user message. r itself is never modified.
func (r Request) AugmentLastUserMessage(fn func(text string) string) Request {
	out := r.Clone()
	if idx := out.LastUserMessageIndex(); idx >= 0 {
		out.Messages[idx].Content = fn(out.Messages[idx].Content)
		return out
	}
	out.Messages = append(out.Messages, NewUserMessage(fn("")))
	return out
}

// WithSystem returns a copy of r with a leading system message when r has none.
func (r Request) WithSystem(text string) Request {
	if text == "" {
		return r
	}
	if _, ok := r.SystemMessage(); ok {
		return r
	}
	out := r.Clone()
	out.Messages = append([]Message{NewSystemMessage(text)}, out.Messages...)
	return out
}

// NewTextRequest builds a request holding a single user message.
func NewTextRequest(text string) Request {
	return Request{Messages: []Message{NewUserMessage(text)}}
}
