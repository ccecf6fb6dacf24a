// Package chatclient offers a small fluent client over a model and its
// advisor chain. A Builder captures defaults (system text, advisors, model
// options) and produces immutable Clients; Builders can be cloned so a judge
// can reuse the primary model with its own advisors.
package chatclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/evalharness/advisor"
	"github.com/hupe1980/evalharness/logging"
	"github.com/hupe1980/evalharness/model"
)

// ErrNoModel is returned by Build when no model was configured.
var ErrNoModel = errors.New("chatclient: model must not be nil")

// Factory produces Clients. *Builder implements it.
type Factory interface {
	Build() (*Client, error)
}

// Builder accumulates client defaults.
type Builder struct {
	model    model.Model
	system   string
	options  model.Options
	advisors []advisor.Advisor
	logger   logging.Logger
}

// NewBuilder starts a builder for m.
func NewBuilder(m model.Model) *Builder {
	return &Builder{model: m, logger: logging.NoOpLogger{}}
}

// DefaultSystem sets the system text prepended to requests that carry none.
func (b *Builder) DefaultSystem(text string) *Builder { b.system = text; return b }

// DefaultOptions sets model options applied to requests leaving them unset.
func (b *Builder) DefaultOptions(opts model.Options) *Builder { b.options = opts; return b }

// DefaultAdvisors appends advisors to every client built from b.
func (b *Builder) DefaultAdvisors(advisors ...advisor.Advisor) *Builder {
	b.advisors = append(b.advisors, advisors...)
	return b
}

// Logger sets the chain logger.
func (b *Builder) Logger(l logging.Logger) *Builder { b.logger = logging.OrNoOp(l); return b }

// Clone returns an independent copy of b.
func (b *Builder) Clone() *Builder {
	c := *b
	c.advisors = append([]advisor.Advisor(nil), b.advisors...)
	return &c
}

// Build implements Factory.
func (b *Builder) Build() (*Client, error) {
	if b.model == nil {
		return nil, ErrNoModel
	}
	return &Client{
		system:  b.system,
		options: b.options,
		chain:   advisor.NewChain(b.model, b.advisors, func(o *advisor.ChainOptions) { o.Logger = b.logger }),
	}, nil
}

// Client executes prompts through an advisor chain. It is safe for concurrent use.
type Client struct {
	system  string
	options model.Options
	chain   *advisor.Chain
}

// Chain exposes the client's advisor chain.
func (c *Client) Chain() *advisor.Chain { return c.chain }

// RequestOption customizes the advisor request of a single call.
type RequestOption func(r *advisor.Request)

// WithContextValue stores a value in the request context shared by advisors.
func WithContextValue(key string, value any) RequestOption {
	return func(r *advisor.Request) { r.Context[key] = value }
}

func (c *Client) prepare(prompt model.Request, opts []RequestOption) *advisor.Request {
	prompt = prompt.WithSystem(c.system)
	if prompt.Options.Model == "" {
		prompt.Options.Model = c.options.Model
	}
	if prompt.Options.Temperature == nil {
		prompt.Options.Temperature = c.options.Temperature
	}
	if prompt.Options.MaxTokens == 0 {
		prompt.Options.MaxTokens = c.options.MaxTokens
	}
	req := advisor.NewRequest(prompt)
	for _, opt := range opts {
		opt(req)
	}
	return req
}

// Call runs a blocking request.
func (c *Client) Call(ctx context.Context, prompt model.Request, opts ...RequestOption) (*advisor.Response, error) {
	return c.chain.Call(ctx, c.prepare(prompt, opts))
}

// Stream runs a streaming request.
func (c *Client) Stream(ctx context.Context, prompt model.Request, opts ...RequestOption) (<-chan *advisor.Response, <-chan error) {
	return c.chain.Stream(ctx, c.prepare(prompt, opts))
}

// Content sends text as a single user message and returns the answer text.
func (c *Client) Content(ctx context.Context, text string, opts ...RequestOption) (string, error) {
	resp, err := c.Call(ctx, model.NewTextRequest(text), opts...)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Entity sends text with JSON format instructions derived from out's type and
// decodes the answer into out. Undecodable answers yield ErrEntityParse.
func (c *Client) Entity(ctx context.Context, text string, out any) error {
	resp, err := c.Call(ctx, model.NewTextRequest(text+"\n\n"+FormatInstructions(out)))
	if err != nil {
		return err
	}
	if !resp.HasResult() {
		return fmt.Errorf("%w: empty response", ErrEntityParse)
	}
	return DecodeEntity(resp.Text(), out)
}
