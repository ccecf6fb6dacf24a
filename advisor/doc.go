// Package advisor implements the request/response pipeline that wraps a model
// call. Advisors are ordered stages; each receives the request together with
// the remainder of the chain and decides when (and how often) to invoke it.
//
// Ordering follows a numeric key: lower values run first (outermost). The
// terminal stage, always last, executes the request against a model.Model.
//
//	chain := advisor.NewChain(m, []advisor.Advisor{
//		advisor.NewLoggingAdvisor(0, "[MAIN]"),
//	})
//	resp, err := chain.Call(ctx, advisor.NewRequest(model.NewTextRequest("hi")))
//
// Chains are immutable after construction and safe for concurrent use. A
// CallChain continuation is reentrant: invoking NextCall several times from
// the same stage re-runs every downstream stage, which is what retrying
// advisors rely on.
package advisor
