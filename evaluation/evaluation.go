// Package evaluation scores model answers with an LLM judge. A Judge renders
// an evaluation Template with the conversation ("question") and the answer,
// asks a judge client for a structured Result and returns it unchanged.
package evaluation

import (
	"context"
	"fmt"

	"github.com/hupe1980/evalharness/model"
)

// Rating bounds of the point-wise scale.
const (
	MinRating = 1
	MaxRating = 4
)

// Result is the judge's verdict for one answer.
type Result struct {
	Rating     int    `json:"rating" description:"Score from 1 (task not done) to 4 (task fully done)."`
	Evaluation string `json:"evaluation" description:"Direct assessment of whether the task was actually completed."`
	Feedback   string `json:"feedback" description:"Specific, actionable feedback on what was missed; incremental guidance only."`
}

// Passed reports whether the rating meets threshold.
func (r Result) Passed(threshold int) bool { return r.Rating >= threshold }

// String implements fmt.Stringer for log output.
func (r Result) String() string {
	return fmt.Sprintf("rating=%d evaluation=%q feedback=%q", r.Rating, r.Evaluation, r.Feedback)
}

// Judge scores the answer in resp to the conversation in req.
type Judge interface {
	Evaluate(ctx context.Context, req model.Request, resp *model.Response) (Result, error)
}

// JudgeFunc adapts a function to Judge.
type JudgeFunc func(ctx context.Context, req model.Request, resp *model.Response) (Result, error)

// Evaluate implements Judge.
func (f JudgeFunc) Evaluate(ctx context.Context, req model.Request, resp *model.Response) (Result, error) {
	return f(ctx, req, resp)
}
