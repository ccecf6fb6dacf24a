package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/hupe1980/evalharness/advisor"
	"github.com/hupe1980/evalharness/evaluation"
	"github.com/hupe1980/evalharness/internal/testutil"
	"github.com/hupe1980/evalharness/logging"
	"github.com/hupe1980/evalharness/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// scriptedJudge returns ratings in order (repeating the last one) with
// feedback "fb<n>" and records every evaluated request.
type scriptedJudge struct {
	mu       sync.Mutex
	ratings  []int
	requests []model.Request
	answers  []string
}

func newScriptedJudge(ratings ...int) *scriptedJudge { return &scriptedJudge{ratings: ratings} }

func (j *scriptedJudge) Evaluate(_ context.Context, req model.Request, resp *model.Response) (evaluation.Result, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := len(j.requests)
	j.requests = append(j.requests, req.Clone())
	j.answers = append(j.answers, evaluation.Answer(resp))
	rating := j.ratings[len(j.ratings)-1]
	if n < len(j.ratings) {
		rating = j.ratings[n]
	}
	return evaluation.Result{Rating: rating, Evaluation: "eval", Feedback: fmt.Sprintf("fb%d", n+1)}, nil
}

func (j *scriptedJudge) calls() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.requests)
}

// mockJudge is a testify mock of evaluation.Judge.
type mockJudge struct{ mock.Mock }

func (m *mockJudge) Evaluate(ctx context.Context, req model.Request, resp *model.Response) (evaluation.Result, error) {
	args := m.Called(ctx, req, resp)
	return args.Get(0).(evaluation.Result), args.Error(1)
}

func testConfig(maxAttempts int) Config {
	return Config{
		successRating:     4,
		maxRepeatAttempts: maxAttempts,
		order:             DefaultOrder,
		template:          evaluation.DefaultTemplate,
		skip:              DefaultSkipPredicate,
	}
}

func newTestChain(m model.Model, a *Advisor) *advisor.Chain {
	return advisor.NewChain(m, []advisor.Advisor{a})
}

func lastUserText(req model.Request) string {
	return req.Messages[req.LastUserMessageIndex()].Content
}

func TestAdvisor_PassOnFirstAttempt(t *testing.T) {
	primary := model.NewMockModel("primary", "mock").Script("done")
	judge := newScriptedJudge(4)
	h := newAdvisor(testConfig(3), judge, nil)

	resp, err := newTestChain(primary, h).Call(context.Background(), testutil.NewRequestBuilder().User("do it").Envelope())
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Text())
	assert.Len(t, primary.Requests(), 1)
	assert.Equal(t, 1, judge.calls())
	assert.Equal(t, []string{"done"}, judge.answers)
}

func TestAdvisor_InvocationBound(t *testing.T) {
	for _, k := range []int{1, 2, 3, 5} {
		t.Run(fmt.Sprintf("max=%d", k), func(t *testing.T) {
			primary := model.NewMockModel("primary", "mock")
			judge := newScriptedJudge(1)
			h := newAdvisor(testConfig(k), judge, nil)

			resp, err := newTestChain(primary, h).Call(context.Background(), testutil.NewRequestBuilder().User("q").Envelope())
			require.NoError(t, err)
			require.NotNil(t, resp)
			assert.Len(t, primary.Requests(), k+1)
			assert.Equal(t, k+1, judge.calls())
		})
	}
}

func TestAdvisor_ExhaustedReturnsLastResponse(t *testing.T) {
	primary := model.NewMockModel("primary", "mock").Script("a1", "a2", "a3", "a4")
	judge := newScriptedJudge(2)

	var buf bytes.Buffer
	logger := logging.NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	h := newAdvisor(testConfig(3), judge, logger)

	resp, err := newTestChain(primary, h).Call(context.Background(), testutil.NewRequestBuilder().User("q").Envelope())
	require.NoError(t, err)
	assert.Equal(t, "a4", resp.Text())
	assert.Len(t, primary.Requests(), 4)
	assert.Equal(t, 3, strings.Count(buf.String(), "harness.evaluation.failed"))
	assert.Contains(t, buf.String(), "harness.attempts.exhausted")
	assert.Contains(t, buf.String(), "fb4")
}

func TestAdvisor_PassOnSecondAttempt(t *testing.T) {
	primary := model.NewMockModel("primary", "mock").Script("draft", "final")
	judge := newScriptedJudge(2, 4)
	h := newAdvisor(testConfig(3), judge, nil)

	req := testutil.NewRequestBuilder().System("sys").User("write a poem").Envelope()
	resp, err := newTestChain(primary, h).Call(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "final", resp.Text())

	calls := primary.Requests()
	require.Len(t, calls, 2)
	assert.Equal(t, "write a poem", lastUserText(calls[0]))
	assert.Equal(t, AppendFeedback("write a poem", "fb1"), lastUserText(calls[1]))

	// the judge sees the request actually sent on each attempt
	require.Len(t, judge.requests, 2)
	assert.Contains(t, evaluation.Question(judge.requests[1]), "EVALUATION FEEDBACK")
	assert.NotContains(t, evaluation.Question(judge.requests[0]), "EVALUATION FEEDBACK")
}

func TestAdvisor_FeedbackDoesNotCompound(t *testing.T) {
	primary := model.NewMockModel("primary", "mock")
	judge := newScriptedJudge(1, 2, 3, 4)
	h := newAdvisor(testConfig(3), judge, nil)

	req := testutil.NewRequestBuilder().System("sys").User("first").Assistant("ok").User("second").Envelope()
	original := req.Prompt.Clone()

	_, err := newTestChain(primary, h).Call(context.Background(), req)
	require.NoError(t, err)

	calls := primary.Requests()
	require.Len(t, calls, 4)
	for i, call := range calls {
		assert.Len(t, call.Messages, len(original.Messages), "attempt %d", i+1)
		assert.Equal(t, original.Messages[:3], call.Messages[:3], "attempt %d", i+1)
	}
	assert.Equal(t, AppendFeedback("second", "fb3"), lastUserText(calls[3]))
	assert.NotContains(t, lastUserText(calls[3]), "fb1")
	assert.NotContains(t, lastUserText(calls[3]), "fb2")
	assert.Equal(t, 1, strings.Count(lastUserText(calls[3]), "EVALUATION FEEDBACK"))

	// caller's request untouched
	assert.Equal(t, original, req.Prompt)
}

func TestAdvisor_SkipsToolCalls(t *testing.T) {
	primary := model.NewMockModel("primary", "mock").
		ScriptResponse(testutil.NewResponseBuilder().ToolCall("search", `{"q":"go"}`).Build())
	judge := newScriptedJudge(1)
	h := newAdvisor(testConfig(3), judge, nil)

	resp, err := newTestChain(primary, h).Call(context.Background(), testutil.NewRequestBuilder().User("find").Envelope())
	require.NoError(t, err)
	assert.True(t, resp.Model.HasToolCalls())
	assert.Len(t, primary.Requests(), 1)
	assert.Equal(t, 0, judge.calls())
}

func TestAdvisor_SkipsEmptyResponse(t *testing.T) {
	primary := model.NewMockModel("primary", "mock").
		ScriptResponse(testutil.NewResponseBuilder().Empty().Build())
	judge := newScriptedJudge(1)
	h := newAdvisor(testConfig(3), judge, nil)

	resp, err := newTestChain(primary, h).Call(context.Background(), testutil.NewRequestBuilder().User("q").Envelope())
	require.NoError(t, err)
	assert.False(t, resp.HasResult())
	assert.Equal(t, 0, judge.calls())
}

func TestAdvisor_SkipPredicateSeesOriginalRequest(t *testing.T) {
	primary := model.NewMockModel("primary", "mock").Script("one", "two")
	judge := newScriptedJudge(1)

	req := testutil.NewRequestBuilder().User("q").Envelope()
	var seen []*advisor.Request
	cfg := testConfig(3)
	cfg.skip = SkipFunc(func(r *advisor.Request, resp *advisor.Response) bool {
		seen = append(seen, r)
		return resp.Text() == "two"
	})
	h := newAdvisor(cfg, judge, nil)

	resp, err := newTestChain(primary, h).Call(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "two", resp.Text())
	require.Len(t, seen, 2)
	for _, r := range seen {
		assert.Same(t, req, r)
	}
	assert.Equal(t, 1, judge.calls())
}

func TestAdvisor_DelegateErrorPropagates(t *testing.T) {
	boom := errors.New("primary down")
	primary := model.NewMockModel("primary", "mock").ScriptError(boom)
	judge := newScriptedJudge(4)
	h := newAdvisor(testConfig(3), judge, nil)

	_, err := newTestChain(primary, h).Call(context.Background(), testutil.NewRequestBuilder().User("q").Envelope())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, judge.calls())
}

func TestAdvisor_JudgeErrorPropagates(t *testing.T) {
	judgeErr := fmt.Errorf("judge: %w", errors.New("unparseable"))
	judge := &mockJudge{}
	judge.On("Evaluate", mock.Anything, mock.Anything, mock.Anything).Return(evaluation.Result{}, judgeErr).Once()

	primary := model.NewMockModel("primary", "mock").Script("a")
	h := newAdvisor(testConfig(3), judge, nil)

	_, err := newTestChain(primary, h).Call(context.Background(), testutil.NewRequestBuilder().User("q").Envelope())
	assert.ErrorIs(t, err, judgeErr)
	assert.Len(t, primary.Requests(), 1)
	judge.AssertExpectations(t)
}

func TestAdvisor_JudgeReceivesCurrentRequestAndResponse(t *testing.T) {
	judge := &mockJudge{}
	judge.On("Evaluate", mock.Anything,
		mock.MatchedBy(func(r model.Request) bool { return lastUserText(r) == "q" }),
		mock.MatchedBy(func(r *model.Response) bool { return r.Text() == "first" }),
	).Return(evaluation.Result{Rating: 3, Feedback: "more"}, nil).Once()
	judge.On("Evaluate", mock.Anything,
		mock.MatchedBy(func(r model.Request) bool { return lastUserText(r) == AppendFeedback("q", "more") }),
		mock.MatchedBy(func(r *model.Response) bool { return r.Text() == "second" }),
	).Return(evaluation.Result{Rating: 4}, nil).Once()

	primary := model.NewMockModel("primary", "mock").Script("first", "second")
	h := newAdvisor(testConfig(3), judge, nil)

	resp, err := newTestChain(primary, h).Call(context.Background(), testutil.NewRequestBuilder().User("q").Envelope())
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Text())
	judge.AssertExpectations(t)
}

func TestAdvisor_StopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	judge := evaluation.JudgeFunc(func(context.Context, model.Request, *model.Response) (evaluation.Result, error) {
		calls++
		cancel()
		return evaluation.Result{Rating: 1, Feedback: "again"}, nil
	})
	primary := model.NewMockModel("primary", "mock").Script("a", "b", "c", "d")
	h := newAdvisor(testConfig(3), judge, nil)

	_, err := newTestChain(primary, h).Call(ctx, testutil.NewRequestBuilder().User("q").Envelope())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, primary.Requests(), 1)
	assert.Equal(t, 1, calls)
}

func TestAdvisor_StreamingUnsupported(t *testing.T) {
	primary := model.NewMockModel("primary", "mock")
	h := newAdvisor(testConfig(3), newScriptedJudge(4), nil)

	respCh, errCh := newTestChain(primary, h).Stream(context.Background(), testutil.NewRequestBuilder().User("q").Envelope())
	for range respCh {
		t.Fatal("unexpected response")
	}
	err := <-errCh
	assert.ErrorIs(t, err, ErrStreamingUnsupported)
	assert.ErrorIs(t, err, errors.ErrUnsupported)
	assert.Contains(t, err.Error(), "does not support streaming")
	assert.Empty(t, primary.Requests())
}

func TestAdvisor_NilRequest(t *testing.T) {
	h := newAdvisor(testConfig(1), newScriptedJudge(4), nil)
	_, err := h.AdviseCall(context.Background(), nil, nil)
	assert.ErrorIs(t, err, advisor.ErrNilRequest)
}

func TestAdvisor_ConcurrentCalls(t *testing.T) {
	// passes once feedback is present, so every call takes exactly two attempts
	judge := evaluation.JudgeFunc(func(_ context.Context, req model.Request, _ *model.Response) (evaluation.Result, error) {
		if strings.Contains(lastUserText(req), "EVALUATION FEEDBACK") {
			return evaluation.Result{Rating: 4}, nil
		}
		return evaluation.Result{Rating: 1, Feedback: "retry"}, nil
	})
	primary := model.NewMockModel("primary", "mock")
	chain := newTestChain(primary, newAdvisor(testConfig(3), judge, nil))

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := testutil.NewRequestBuilder().User(fmt.Sprintf("task %d", i)).Envelope()
			resp, err := chain.Call(context.Background(), req)
			if err != nil {
				errs <- err
				return
			}
			want := "Mock response to: " + AppendFeedback(fmt.Sprintf("task %d", i), "retry")
			if resp.Text() != want {
				errs <- fmt.Errorf("call %d: got %q", i, resp.Text())
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, primary.Requests(), 2*n)
}

func TestAdvisor_Identity(t *testing.T) {
	h := newAdvisor(testConfig(3), newScriptedJudge(4), nil)
	assert.Equal(t, "Evaluation Advisor", h.Name())
	assert.Equal(t, DefaultOrder, h.Order())
	assert.Equal(t, 3, h.Config().MaxRepeatAttempts())
}
