package evaluation

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/evalharness/chatclient"
	"github.com/hupe1980/evalharness/logging"
	"github.com/hupe1980/evalharness/model"
)

// JudgeOptions configures an LLMJudge.
type JudgeOptions struct {
	Template Template
	Logger   logging.Logger
}

// LLMJudge is the LLM-as-a-judge Judge. It holds no per-call state.
type LLMJudge struct {
	client   *chatclient.Client
	template Template
	logger   logging.Logger
}

// NewLLMJudge creates a judge that prompts client.
func NewLLMJudge(client *chatclient.Client, optFns ...func(o *JudgeOptions)) *LLMJudge {
	opts := JudgeOptions{Template: DefaultTemplate, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Template == nil {
		opts.Template = DefaultTemplate
	}
	return &LLMJudge{client: client, template: opts.Template, logger: logging.OrNoOp(opts.Logger)}
}

// Evaluate implements Judge. Parse failures are returned as errors wrapping
// chatclient.ErrEntityParse; no fallback rating is produced.
func (j *LLMJudge) Evaluate(ctx context.Context, req model.Request, resp *model.Response) (Result, error) {
	prompt, err := j.template.Render(map[string]any{
		QuestionKey: Question(req),
		AnswerKey:   Answer(resp),
	})
	if err != nil {
		return Result{}, fmt.Errorf("render evaluation prompt: %w", err)
	}

	var res Result
	if err := j.client.Entity(ctx, prompt, &res); err != nil {
		return Result{}, fmt.Errorf("judge evaluation: %w", err)
	}
	j.logger.Debug("evaluation.judged", "rating", res.Rating)
	return res, nil
}

// Question renders the conversation for the judge: the system message line
// (empty text when the request has none) followed by one ROLE:text line per
// user or assistant message, in order. Other roles are left out.
func Question(req model.Request) string {
	sys, _ := req.SystemMessage()

	lines := make([]string, 0, len(req.Messages)+1)
	lines = append(lines, model.RoleSystem.Label()+":"+sys.Content)
	for _, m := range req.Messages {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			continue
		}
		lines = append(lines, m.Role.Label()+":"+m.Content)
	}
	return strings.Join(lines, "\n")
}

// Answer returns the primary result text of resp, or "".
func Answer(resp *model.Response) string {
	return resp.Text()
}
