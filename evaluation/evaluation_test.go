package evaluation

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/evalharness/chatclient"
	"github.com/hupe1980/evalharness/internal/testutil"
	"github.com/hupe1980/evalharness/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJudge(t *testing.T, m model.Model, optFns ...func(o *JudgeOptions)) *LLMJudge {
	t.Helper()
	client, err := chatclient.NewBuilder(m).Build()
	require.NoError(t, err)
	return NewLLMJudge(client, optFns...)
}

func TestQuestion(t *testing.T) {
	tests := []struct {
		name string
		req  model.Request
		want string
	}{
		{
			name: "system and turns",
			req:  testutil.NewRequestBuilder().System("be brief").User("hi").Assistant("hello").User("again").Build(),
			want: "SYSTEM:be brief\nUSER:hi\nASSISTANT:hello\nUSER:again",
		},
		{
			name: "no system message",
			req:  testutil.NewRequestBuilder().User("hi").Build(),
			want: "SYSTEM:\nUSER:hi",
		},
		{
			name: "tool messages excluded",
			req:  testutil.NewRequestBuilder().System("s").User("q").ToolResult("c1", "42").Assistant("a").Build(),
			want: "SYSTEM:s\nUSER:q\nASSISTANT:a",
		},
		{
			name: "empty request",
			req:  model.Request{},
			want: "SYSTEM:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Question(tt.req))
		})
	}
}

func TestAnswer(t *testing.T) {
	resp := testutil.NewResponseBuilder().Text("the answer").Build()
	assert.Equal(t, "the answer", Answer(&resp))
	assert.Equal(t, "", Answer(nil))

	empty := testutil.NewResponseBuilder().Empty().Build()
	assert.Equal(t, "", Answer(&empty))
}

func TestLLMJudge_Evaluate(t *testing.T) {
	judgeModel := model.NewMockModel("judge", "mock").
		Script(`{"rating": 3, "evaluation": "mostly done", "feedback": "add the tests"}`)
	judge := newJudge(t, judgeModel)

	req := testutil.NewRequestBuilder().System("sys").User("write code").Build()
	resp := testutil.NewResponseBuilder().Text("here is code").Build()

	res, err := judge.Evaluate(context.Background(), req, &resp)
	require.NoError(t, err)
	assert.Equal(t, Result{Rating: 3, Evaluation: "mostly done", Feedback: "add the tests"}, res)
	assert.False(t, res.Passed(4))
	assert.True(t, res.Passed(3))

	calls := judgeModel.Requests()
	require.Len(t, calls, 1)
	prompt := calls[0].Messages[calls[0].LastUserMessageIndex()].Content
	assert.Contains(t, prompt, "Question: SYSTEM:sys\nUSER:write code")
	assert.Contains(t, prompt, "Answer: here is code")
	assert.Contains(t, prompt, `"rating"`)
}

func TestLLMJudge_CustomTemplate(t *testing.T) {
	judgeModel := model.NewMockModel("judge", "mock").
		Script(`{"rating": 4, "evaluation": "ok", "feedback": ""}`)
	tmpl, err := NewPromptTemplate("Q={{.question}} A={{.answer}}")
	require.NoError(t, err)
	judge := newJudge(t, judgeModel, func(o *JudgeOptions) { o.Template = tmpl })

	req := testutil.NewRequestBuilder().User("ping").Build()
	resp := testutil.NewResponseBuilder().Text("pong").Build()

	res, err := judge.Evaluate(context.Background(), req, &resp)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Rating)

	prompt := judgeModel.Requests()[0].Messages[0].Content
	assert.Contains(t, prompt, "Q=SYSTEM:\nUSER:ping A=pong")
}

func TestLLMJudge_ParseFailure(t *testing.T) {
	judge := newJudge(t, model.NewMockModel("judge", "mock").Script("I refuse to answer in JSON"))

	req := testutil.NewRequestBuilder().User("q").Build()
	resp := testutil.NewResponseBuilder().Text("a").Build()

	_, err := judge.Evaluate(context.Background(), req, &resp)
	require.Error(t, err)
	assert.ErrorIs(t, err, chatclient.ErrEntityParse)
}

func TestLLMJudge_ModelError(t *testing.T) {
	boom := errors.New("judge offline")
	judge := newJudge(t, model.NewMockModel("judge", "mock").ScriptError(boom))

	req := testutil.NewRequestBuilder().User("q").Build()
	resp := testutil.NewResponseBuilder().Text("a").Build()

	_, err := judge.Evaluate(context.Background(), req, &resp)
	assert.ErrorIs(t, err, boom)
}

func TestPromptTemplate(t *testing.T) {
	t.Run("invalid syntax", func(t *testing.T) {
		_, err := NewPromptTemplate("{{.question")
		assert.Error(t, err)
	})

	t.Run("missing slot", func(t *testing.T) {
		tmpl := MustPromptTemplate("{{.question}} / {{.answer}}")
		_, err := tmpl.Render(map[string]any{QuestionKey: "q"})
		assert.Error(t, err)
	})

	t.Run("must panics", func(t *testing.T) {
		assert.Panics(t, func() { MustPromptTemplate("{{") })
	})

	t.Run("default renders both slots", func(t *testing.T) {
		out, err := DefaultTemplate.Render(map[string]any{QuestionKey: "USER:q", AnswerKey: "a"})
		require.NoError(t, err)
		assert.Contains(t, out, "Question: USER:q\nAnswer: a")
		assert.Contains(t, out, "Did the assistant REALLY do what was asked?")
	})
}

func TestJudgeFunc(t *testing.T) {
	var j Judge = JudgeFunc(func(context.Context, model.Request, *model.Response) (Result, error) {
		return Result{Rating: 2}, nil
	})
	res, err := j.Evaluate(context.Background(), model.Request{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rating)
	assert.Contains(t, res.String(), "rating=2")
}
