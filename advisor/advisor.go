package advisor

import (
	"context"
	"maps"
	"math"

	"github.com/google/uuid"
	"github.com/hupe1980/evalharness/model"
)

// Ordering sentinels. Valid advisor orders lie strictly between them when an
// advisor insists on a bounded position (see harness.Builder).
const (
	HighestPrecedence = math.MinInt32
	LowestPrecedence  = math.MaxInt32
)

// Request is the envelope passed through the chain.
type Request struct {
	ID      string         // correlation id, stable across retries of the same call
	Prompt  model.Request  // messages + options sent to the model
	Context map[string]any // advisor-shared scratch values
}

// NewRequest wraps a prompt with a fresh correlation id.
func NewRequest(prompt model.Request) *Request {
	return &Request{ID: uuid.NewString(), Prompt: prompt, Context: map[string]any{}}
}

// WithPrompt returns a copy of r carrying prompt. Context is copied shallowly.
func (r *Request) WithPrompt(prompt model.Request) *Request {
	return &Request{ID: r.ID, Prompt: prompt, Context: maps.Clone(r.Context)}
}

// Response is the envelope returned through the chain. Model is nil when the
// terminal stage produced no model output.
type Response struct {
	Model   *model.Response
	Context map[string]any
}

// HasResult reports whether the response carries a usable generated result.
func (r *Response) HasResult() bool {
	return r != nil && r.Model.Result() != nil
}

// Text returns the primary result text, or "".
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return r.Model.Text()
}

// Advisor is the common identity of every stage.
type Advisor interface {
	// Name returns a unique stage identifier.
	Name() string
	// Order positions the stage; lower runs first.
	Order() int
}

// CallChain is the continuation handed to a CallAdvisor.
type CallChain interface {
	NextCall(ctx context.Context, req *Request) (*Response, error)
}

// StreamChain is the continuation handed to a StreamAdvisor.
type StreamChain interface {
	NextStream(ctx context.Context, req *Request) (<-chan *Response, <-chan error)
}

// CallAdvisor participates in blocking calls.
type CallAdvisor interface {
	Advisor
	AdviseCall(ctx context.Context, req *Request, chain CallChain) (*Response, error)
}

// StreamAdvisor participates in streaming calls.
type StreamAdvisor interface {
	Advisor
	AdviseStream(ctx context.Context, req *Request, chain StreamChain) (<-chan *Response, <-chan error)
}

// BeforeAfter is a convenience for advisors that only observe or rewrite
// traffic around the downstream call.
type BeforeAfter interface {
	Advisor
	Before(ctx context.Context, req *Request) (*Request, error)
	After(ctx context.Context, resp *Response) (*Response, error)
}
