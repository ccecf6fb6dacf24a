package advisor

import (
	"context"
	"errors"
	"sort"

	"github.com/hupe1980/evalharness/logging"
	"github.com/hupe1980/evalharness/model"
)

// ErrNilRequest is returned when a nil request enters the chain.
var ErrNilRequest = errors.New("advisor: request must not be nil")

// ChainOptions configures a Chain.
type ChainOptions struct {
	Logger logging.Logger
}

// Chain is an immutable, ordered list of advisors terminated by a model call.
type Chain struct {
	advisors []Advisor
	call     []CallAdvisor
	stream   []StreamAdvisor
	model    model.Model
	logger   logging.Logger
}

// NewChain sorts advisors by Order (stable for equal orders) and binds them
// to the terminal model. Advisors implementing BeforeAfter but neither call
// interface are adapted to both.
func NewChain(m model.Model, advisors []Advisor, optFns ...func(o *ChainOptions)) *Chain {
	opts := ChainOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	sorted := append([]Advisor(nil), advisors...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order() < sorted[j].Order() })

	c := &Chain{advisors: sorted, model: m, logger: logging.OrNoOp(opts.Logger)}
	for _, a := range sorted {
		ba, isBA := a.(BeforeAfter)
		if ca, ok := a.(CallAdvisor); ok {
			c.call = append(c.call, ca)
		} else if isBA {
			c.call = append(c.call, beforeAfterAdapter{ba})
		}
		if sa, ok := a.(StreamAdvisor); ok {
			c.stream = append(c.stream, sa)
		} else if isBA {
			c.stream = append(c.stream, beforeAfterAdapter{ba})
		}
	}
	return c
}

// With returns a new chain with extra advisors merged into the ordering.
func (c *Chain) With(extra ...Advisor) *Chain {
	all := append(append([]Advisor(nil), c.advisors...), extra...)
	return NewChain(c.model, all, func(o *ChainOptions) { o.Logger = c.logger })
}

// Advisors returns the advisors in execution order.
func (c *Chain) Advisors() []Advisor {
	return append([]Advisor(nil), c.advisors...)
}

// Model returns the terminal model.
func (c *Chain) Model() model.Model { return c.model }

// Call runs a blocking request through every CallAdvisor and the model.
func (c *Chain) Call(ctx context.Context, req *Request) (*Response, error) {
	return callLink{chain: c}.NextCall(ctx, req)
}

// Stream runs a streaming request through every StreamAdvisor and the model.
func (c *Chain) Stream(ctx context.Context, req *Request) (<-chan *Response, <-chan error) {
	return streamLink{chain: c}.NextStream(ctx, req)
}

type callLink struct {
	chain *Chain
	next  int
}

// NextCall implements CallChain.
func (l callLink) NextCall(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	if l.next < len(l.chain.call) {
		a := l.chain.call[l.next]
		l.chain.logger.Debug("advisor.chain.call", "advisor", a.Name(), "order", a.Order(), "request_id", req.ID)
		return a.AdviseCall(ctx, req, callLink{chain: l.chain, next: l.next + 1})
	}
	return l.chain.callModel(ctx, req)
}

func (c *Chain) callModel(ctx context.Context, req *Request) (*Response, error) {
	resp, err := model.Call(ctx, c.model, req.Prompt)
	if err != nil {
		return nil, err
	}
	return &Response{Model: resp, Context: req.Context}, nil
}

type streamLink struct {
	chain *Chain
	next  int
}

// NextStream implements StreamChain.
func (l streamLink) NextStream(ctx context.Context, req *Request) (<-chan *Response, <-chan error) {
	if req == nil {
		return Fail(ErrNilRequest)
	}
	if l.next < len(l.chain.stream) {
		a := l.chain.stream[l.next]
		l.chain.logger.Debug("advisor.chain.stream", "advisor", a.Name(), "order", a.Order(), "request_id", req.ID)
		return a.AdviseStream(ctx, req, streamLink{chain: l.chain, next: l.next + 1})
	}
	return l.chain.streamModel(ctx, req)
}

func (c *Chain) streamModel(ctx context.Context, req *Request) (<-chan *Response, <-chan error) {
	prompt := req.Prompt
	prompt.Stream = true
	respCh, errCh := c.model.Generate(ctx, prompt)

	out := make(chan *Response, 16)
	outErr := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(outErr)
		for respCh != nil || errCh != nil {
			select {
			case resp, ok := <-respCh:
				if !ok {
					respCh = nil
					continue
				}
				r := resp
				select {
				case out <- &Response{Model: &r, Context: req.Context}:
				case <-ctx.Done():
					outErr <- ctx.Err()
					return
				}
			case err, ok := <-errCh:
				if !ok {
					errCh = nil
					continue
				}
				if err != nil {
					outErr <- err
					return
				}
			}
		}
	}()
	return out, outErr
}

// Fail returns already-closed stream channels carrying a single error.
func Fail(err error) (<-chan *Response, <-chan error) {
	out := make(chan *Response)
	errCh := make(chan error, 1)
	errCh <- err
	close(out)
	close(errCh)
	return out, errCh
}

// Drain discards the remaining responses of ch so that its producer can
// finish. Call it after abandoning a stream early.
func Drain(ch <-chan *Response) {
	for range ch {
	}
}

// beforeAfterAdapter lifts a BeforeAfter advisor into both call interfaces.
type beforeAfterAdapter struct{ BeforeAfter }

func (a beforeAfterAdapter) AdviseCall(ctx context.Context, req *Request, chain CallChain) (*Response, error) {
	req, err := a.Before(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := chain.NextCall(ctx, req)
	if err != nil {
		return nil, err
	}
	return a.After(ctx, resp)
}

// AdviseStream applies Before once and After to the final (non-partial) chunk.
func (a beforeAfterAdapter) AdviseStream(ctx context.Context, req *Request, chain StreamChain) (<-chan *Response, <-chan error) {
	req, err := a.Before(ctx, req)
	if err != nil {
		return Fail(err)
	}
	inCh, inErr := chain.NextStream(ctx, req)

	out := make(chan *Response, 16)
	outErr := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(outErr)
		for resp := range inCh {
			if resp.Model != nil && !resp.Model.Partial {
				after, err := a.After(ctx, resp)
				if err != nil {
					outErr <- err
					Drain(inCh)
					return
				}
				resp = after
			}
			select {
			case out <- resp:
			case <-ctx.Done():
				outErr <- ctx.Err()
				Drain(inCh)
				return
			}
		}
		if err := <-inErr; err != nil {
			outErr <- err
		}
	}()
	return out, outErr
}
