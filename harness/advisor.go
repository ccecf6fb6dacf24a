package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/evalharness/advisor"
	"github.com/hupe1980/evalharness/evaluation"
	"github.com/hupe1980/evalharness/logging"
	"github.com/hupe1980/evalharness/model"
)

// ErrStreamingUnsupported is returned by AdviseStream.
var ErrStreamingUnsupported = fmt.Errorf("harness: %s does not support streaming: %w", Name, errors.ErrUnsupported)

// Advisor is the evaluation-and-retry stage. It implements
// advisor.CallAdvisor and advisor.StreamAdvisor.
type Advisor struct {
	cfg    Config
	judge  evaluation.Judge
	logger logging.Logger
}

var (
	_ advisor.CallAdvisor   = (*Advisor)(nil)
	_ advisor.StreamAdvisor = (*Advisor)(nil)
)

func newAdvisor(cfg Config, judge evaluation.Judge, logger logging.Logger) *Advisor {
	return &Advisor{cfg: cfg, judge: judge, logger: logging.OrNoOp(logger)}
}

// Name implements advisor.Advisor.
func (a *Advisor) Name() string { return Name }

// Order implements advisor.Advisor.
func (a *Advisor) Order() int { return a.cfg.order }

// Config returns the advisor configuration.
func (a *Advisor) Config() Config { return a.cfg }

// attemptState is the loop variable of AdviseCall: the attempt number
// (1-based) and the request sent downstream on that attempt.
type attemptState struct {
	attempt int
	request *advisor.Request
}

func (s attemptState) next(req *advisor.Request) attemptState {
	return attemptState{attempt: s.attempt + 1, request: req}
}

// AdviseCall forwards req downstream up to MaxRepeatAttempts+1 times. It
// returns the first response that is skipped or rated at least
// SuccessRating; when attempts run out it returns the last response without
// an error.
func (a *Advisor) AdviseCall(ctx context.Context, req *advisor.Request, chain advisor.CallChain) (*advisor.Response, error) {
	if req == nil {
		return nil, advisor.ErrNilRequest
	}

	limit := a.cfg.maxRepeatAttempts + 1
	for state := (attemptState{attempt: 1, request: req}); state.attempt <= limit; {
		if state.attempt > 1 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		resp, err := chain.NextCall(ctx, state.request)
		if err != nil {
			return nil, err
		}

		if a.cfg.skip.Skip(req, resp) {
			a.logger.Debug("harness.evaluation.skipped", "request_id", req.ID, "attempt", state.attempt)
			return resp, nil
		}

		result, err := a.judge.Evaluate(ctx, state.request.Prompt, modelResponse(resp))
		if err != nil {
			return nil, err
		}

		if result.Passed(a.cfg.successRating) {
			a.logger.Info("harness.evaluation.passed",
				"request_id", req.ID,
				"attempt", state.attempt,
				"rating", result.Rating,
			)
			return resp, nil
		}

		if state.attempt > a.cfg.maxRepeatAttempts {
			a.logger.Warn("harness.attempts.exhausted",
				"request_id", req.ID,
				"attempts", state.attempt,
				"rating", result.Rating,
				"feedback", result.Feedback,
			)
			return resp, nil
		}

		a.logger.Info("harness.evaluation.failed",
			"request_id", req.ID,
			"attempt", state.attempt,
			"rating", result.Rating,
			"evaluation", result.Evaluation,
			"feedback", result.Feedback,
		)
		state = state.next(AugmentWithFeedback(req, result))
	}

	panic(fmt.Sprintf("harness: evaluation loop for request %s ended without a decision", req.ID))
}

func modelResponse(resp *advisor.Response) *model.Response {
	if resp == nil {
		return nil
	}
	return resp.Model
}

// AdviseStream fails with ErrStreamingUnsupported without calling chain.
func (a *Advisor) AdviseStream(_ context.Context, _ *advisor.Request, _ advisor.StreamChain) (<-chan *advisor.Response, <-chan error) {
	return advisor.Fail(ErrStreamingUnsupported)
}
