package harness

import "github.com/hupe1980/evalharness/advisor"

// SkipPredicate decides whether a response bypasses evaluation. req is the
// original inbound request.
type SkipPredicate interface {
	Skip(req *advisor.Request, resp *advisor.Response) bool
}

// SkipFunc adapts a function to SkipPredicate.
type SkipFunc func(req *advisor.Request, resp *advisor.Response) bool

// Skip implements SkipPredicate.
func (f SkipFunc) Skip(req *advisor.Request, resp *advisor.Response) bool { return f(req, resp) }

// DefaultSkipPredicate skips responses without a usable result and
// responses asking for tool invocations.
var DefaultSkipPredicate SkipPredicate = SkipFunc(func(_ *advisor.Request, resp *advisor.Response) bool {
	return !resp.HasResult() || resp.Model.HasToolCalls()
})

// SkipAny skips when any of preds does.
func SkipAny(preds ...SkipPredicate) SkipPredicate {
	return SkipFunc(func(req *advisor.Request, resp *advisor.Response) bool {
		for _, p := range preds {
			if p != nil && p.Skip(req, resp) {
				return true
			}
		}
		return false
	})
}
