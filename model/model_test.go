package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conversation() Request {
	return Request{
		Messages: []Message{
			NewSystemMessage("be brief"),
			NewUserMessage("first question"),
			NewAssistantMessage("first answer"),
			NewUserMessage("second question"),
			NewToolMessage("call-1", "tool output"),
		},
	}
}

func TestRequest_SystemMessage(t *testing.T) {
	sys, ok := conversation().SystemMessage()
	require.True(t, ok)
	assert.Equal(t, "be brief", sys.Content)

	_, ok = NewTextRequest("hi").SystemMessage()
	assert.False(t, ok)
}

func TestRequest_AugmentLastUserMessage(t *testing.T) {
	orig := conversation()
	out := orig.AugmentLastUserMessage(func(text string) string { return text + " + feedback" })

	require.Len(t, out.Messages, len(orig.Messages))
	assert.Equal(t, "second question + feedback", out.Messages[3].Content)
	assert.Equal(t, "first question", out.Messages[1].Content)
	assert.Equal(t, "second question", orig.Messages[3].Content, "original must not change")
}

func TestRequest_AugmentWithoutUserMessage(t *testing.T) {
	orig := Request{Messages: []Message{NewSystemMessage("sys")}}
	out := orig.AugmentLastUserMessage(func(text string) string { return text + "fb" })

	require.Len(t, out.Messages, 2)
	assert.Equal(t, NewUserMessage("fb"), out.Messages[1])
	assert.Len(t, orig.Messages, 1)
}

func TestRequest_CloneIsDeep(t *testing.T) {
	temp := 0.2
	orig := Request{
		Messages: []Message{{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1", Name: "lookup"}}}},
		Options:  Options{Temperature: &temp},
		Tools:    []ToolDefinition{{Name: "lookup"}},
	}
	c := orig.Clone()
	c.Messages[0].ToolCalls[0].Name = "changed"
	*c.Options.Temperature = 0.9
	c.Tools[0].Name = "changed"

	assert.Equal(t, "lookup", orig.Messages[0].ToolCalls[0].Name)
	assert.Equal(t, 0.2, *orig.Options.Temperature)
	assert.Equal(t, "lookup", orig.Tools[0].Name)
}

func TestRequest_WithSystem(t *testing.T) {
	r := NewTextRequest("hi").WithSystem("sys")
	require.Len(t, r.Messages, 2)
	assert.Equal(t, RoleSystem, r.Messages[0].Role)

	same := conversation().WithSystem("other")
	sys, _ := same.SystemMessage()
	assert.Equal(t, "be brief", sys.Content)
}

func TestResponse_Helpers(t *testing.T) {
	var nilResp *Response
	assert.Nil(t, nilResp.Result())
	assert.Equal(t, "", nilResp.Text())
	assert.False(t, nilResp.HasToolCalls())

	empty := &Response{}
	assert.Nil(t, empty.Result())

	text := NewTextResponse("Sofia")
	assert.Equal(t, "Sofia", text.Text())
	assert.False(t, text.HasToolCalls())

	tools := &Response{Results: []Result{{Message: Message{Role: RoleAssistant, ToolCalls: []ToolCall{{Name: "weather"}}}}}}
	assert.True(t, tools.HasToolCalls())
}

func TestRole_Label(t *testing.T) {
	assert.Equal(t, "USER", RoleUser.Label())
	assert.Equal(t, "ASSISTANT", RoleAssistant.Label())
}

func TestMockModel_ScriptThenCanned(t *testing.T) {
	m := NewMockModel("mock", "mock")
	m.Script("scripted")
	m.AddResponse("hello", "canned")

	ctx := context.Background()
	resp, err := Call(ctx, m, NewTextRequest("hello"))
	require.NoError(t, err)
	assert.Equal(t, "scripted", resp.Text())
	assert.NotEmpty(t, resp.ID)

	resp, err = Call(ctx, m, NewTextRequest("hello"))
	require.NoError(t, err)
	assert.Equal(t, "canned", resp.Text())

	resp, err = Call(ctx, m, NewTextRequest("unknown"))
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: unknown", resp.Text())

	assert.Equal(t, 3, m.Calls())
	assert.Equal(t, "unknown", m.Requests()[2].Messages[0].Content)
}

func TestMockModel_Fallback(t *testing.T) {
	m := NewMockModel("mock", "mock").Fallback(func(req Request) string {
		return "seen " + string(rune('0'+len(req.Messages)))
	})
	m.AddResponse("hello", "canned")

	ctx := context.Background()
	resp, err := Call(ctx, m, NewTextRequest("hello"))
	require.NoError(t, err)
	assert.Equal(t, "canned", resp.Text())

	resp, err = Call(ctx, m, conversation())
	require.NoError(t, err)
	assert.Equal(t, "seen 5", resp.Text())
}

func TestMockModel_ScriptError(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockModel("mock", "mock").ScriptError(boom)

	_, err := Call(context.Background(), m, NewTextRequest("x"))
	assert.ErrorIs(t, err, boom)
}

func TestMockModel_Streaming(t *testing.T) {
	m := NewMockModel("mock", "mock").Script("abc")
	req := NewTextRequest("x")
	req.Stream = true

	respCh, errCh := m.Generate(context.Background(), req)

	var partial string
	var final *Response
	for resp := range respCh {
		if resp.Partial {
			partial += resp.Text()
			continue
		}
		r := resp
		final = &r
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, "abc", partial)
	require.NotNil(t, final)
	assert.Equal(t, "abc", final.Text())
}

func TestCollect_NoFinalResponse(t *testing.T) {
	respCh := make(chan Response)
	errCh := make(chan error)
	close(respCh)
	close(errCh)

	_, err := Collect(context.Background(), respCh, errCh)
	assert.ErrorIs(t, err, ErrNoResponse)
}
