package advisor

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/hupe1980/evalharness/logging"
	"github.com/hupe1980/evalharness/model"
)

var nonsense = []string{
	"The answer is definitely 42.",
	"I'm sorry, I was distracted by a butterfly.",
	"Have you tried turning it off and on again?",
	"The quick brown fox jumps over the lazy dog.",
	"According to my calculations... beep boop... error.",
	"I think the answer you're looking for is: banana.",
	"Let me consult my crystal ball... unclear, ask again later.",
	"The mitochondria is the powerhouse of the cell.",
}

// ChaosAdvisor replaces model output with random nonsense at a configured
// probability. It exists to exercise evaluation and retry paths.
type ChaosAdvisor struct {
	order       int
	probability float64
	logger      logging.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// ChaosAdvisorOptions configures a ChaosAdvisor.
type ChaosAdvisorOptions struct {
	// Probability in [0,1] that a response is corrupted. Default 0.5.
	Probability float64
	// Rand overrides the random source; tests pass a seeded generator.
	Rand   *rand.Rand
	Logger logging.Logger
}

// NewChaosAdvisor creates a corrupting stage at order.
func NewChaosAdvisor(order int, optFns ...func(o *ChaosAdvisorOptions)) *ChaosAdvisor {
	opts := ChaosAdvisorOptions{Probability: 0.5, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &ChaosAdvisor{
		order:       order,
		probability: opts.Probability,
		rnd:         rnd,
		logger:      logging.OrNoOp(opts.Logger),
	}
}

// Name implements Advisor.
func (a *ChaosAdvisor) Name() string { return "Chaos Advisor" }

// Order implements Advisor.
func (a *ChaosAdvisor) Order() int { return a.order }

// Before implements BeforeAfter.
func (a *ChaosAdvisor) Before(_ context.Context, req *Request) (*Request, error) { return req, nil }

// After implements BeforeAfter. Responses without a result pass through.
func (a *ChaosAdvisor) After(_ context.Context, resp *Response) (*Response, error) {
	if !resp.HasResult() {
		return resp, nil
	}
	text, corrupt := a.roll()
	if !corrupt {
		return resp, nil
	}

	a.logger.Info("advisor.chaos.corrupted", "text", text)

	corrupted := *resp.Model
	corrupted.Results = []model.Result{{
		Message:      model.NewAssistantMessage(text),
		FinishReason: resp.Model.Results[0].FinishReason,
	}}
	return &Response{Model: &corrupted, Context: resp.Context}, nil
}

func (a *ChaosAdvisor) roll() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rnd.Float64() >= a.probability {
		return "", false
	}
	return nonsense[a.rnd.IntN(len(nonsense))], true
}
