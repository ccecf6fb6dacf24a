package memory

import (
	"context"
	"fmt"

	"github.com/hupe1980/evalharness/advisor"
	"github.com/hupe1980/evalharness/logging"
	"github.com/hupe1980/evalharness/model"
)

// ConversationIDKey is the advisor.Request context key selecting the
// conversation. Requests without it use DefaultConversationID.
const ConversationIDKey = "memory.conversation_id"

// DefaultConversationID is used when a request names no conversation.
const DefaultConversationID = "default"

// Advisor replays and records conversation history.
type Advisor struct {
	store  Store
	order  int
	logger logging.Logger
}

var (
	_ advisor.CallAdvisor   = (*Advisor)(nil)
	_ advisor.StreamAdvisor = (*Advisor)(nil)
)

// AdvisorOptions configures an Advisor.
type AdvisorOptions struct {
	Logger logging.Logger
}

// NewAdvisor creates a memory stage at order backed by store.
func NewAdvisor(store Store, order int, optFns ...func(o *AdvisorOptions)) *Advisor {
	opts := AdvisorOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Advisor{store: store, order: order, logger: logging.OrNoOp(opts.Logger)}
}

// Name implements advisor.Advisor.
func (a *Advisor) Name() string { return "Memory Advisor" }

// Order implements advisor.Advisor.
func (a *Advisor) Order() int { return a.order }

// AdviseCall implements advisor.CallAdvisor.
func (a *Advisor) AdviseCall(ctx context.Context, req *advisor.Request, chain advisor.CallChain) (*advisor.Response, error) {
	id := ConversationID(req)
	withHistory, err := a.withHistory(ctx, id, req)
	if err != nil {
		return nil, err
	}

	resp, err := chain.NextCall(ctx, withHistory)
	if err != nil {
		return nil, err
	}
	if err := a.record(ctx, id, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// AdviseStream implements advisor.StreamAdvisor. The exchange is recorded
// after the final chunk.
func (a *Advisor) AdviseStream(ctx context.Context, req *advisor.Request, chain advisor.StreamChain) (<-chan *advisor.Response, <-chan error) {
	id := ConversationID(req)
	withHistory, err := a.withHistory(ctx, id, req)
	if err != nil {
		return advisor.Fail(err)
	}

	in, inErr := chain.NextStream(ctx, withHistory)
	out := make(chan *advisor.Response)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		var final *advisor.Response
		for resp := range in {
			if resp != nil && resp.Model != nil && !resp.Model.Partial {
				final = resp
			}
			select {
			case out <- resp:
			case <-ctx.Done():
				errCh <- ctx.Err()
				advisor.Drain(in)
				return
			}
		}
		if err := <-inErr; err != nil {
			errCh <- err
			return
		}
		if final != nil {
			if err := a.record(ctx, id, req, final); err != nil {
				errCh <- err
			}
		}
	}()
	return out, errCh
}

// withHistory inserts the stored history after the leading system messages.
func (a *Advisor) withHistory(ctx context.Context, id string, req *advisor.Request) (*advisor.Request, error) {
	history, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("memory: load conversation %s: %w", id, err)
	}
	if len(history) == 0 {
		return req, nil
	}

	prompt := req.Prompt.Clone()
	msgs := prompt.Messages
	split := 0
	for split < len(msgs) && msgs[split].Role == model.RoleSystem {
		split++
	}

	prompt.Messages = make([]model.Message, 0, len(msgs)+len(history))
	prompt.Messages = append(prompt.Messages, msgs[:split]...)
	prompt.Messages = append(prompt.Messages, history...)
	prompt.Messages = append(prompt.Messages, msgs[split:]...)

	a.logger.Debug("memory.history.loaded", "conversation_id", id, "messages", len(history))
	return req.WithPrompt(prompt), nil
}

// record stores the last user message of the original request and the
// answer. Earlier messages of the request are assumed to be history the
// caller already holds and are not stored again.
func (a *Advisor) record(ctx context.Context, id string, req *advisor.Request, resp *advisor.Response) error {
	if !resp.HasResult() {
		return nil
	}
	msgs := make([]model.Message, 0, 2)
	if idx := req.Prompt.LastUserMessageIndex(); idx >= 0 {
		msgs = append(msgs, req.Prompt.Messages[idx])
	}
	msgs = append(msgs, resp.Model.Result().Message)
	if err := a.store.Append(ctx, id, msgs...); err != nil {
		return fmt.Errorf("memory: store conversation %s: %w", id, err)
	}
	return nil
}

// ConversationID returns the conversation selected by req.
func ConversationID(req *advisor.Request) string {
	if id, ok := req.Context[ConversationIDKey].(string); ok && id != "" {
		return id
	}
	return DefaultConversationID
}
