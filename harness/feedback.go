package harness

import (
	"fmt"

	"github.com/hupe1980/evalharness/advisor"
	"github.com/hupe1980/evalharness/evaluation"
)

const feedbackFormat = `%s

EVALUATION FEEDBACK - Your previous response was flagged for not fully completing the task:
%s

IMPORTANT: Address the specific feedback above. Do NOT start over from scratch or delete existing work.
Make incremental corrections to actually complete what was originally asked.`

// AppendFeedback appends the delimited feedback block to text.
func AppendFeedback(text, feedback string) string {
	return fmt.Sprintf(feedbackFormat, text, feedback)
}

// AugmentWithFeedback returns a copy of original whose last user message
// carries result.Feedback. original is not modified and the message count
// is preserved.
func AugmentWithFeedback(original *advisor.Request, result evaluation.Result) *advisor.Request {
	prompt := original.Prompt.AugmentLastUserMessage(func(text string) string {
		return AppendFeedback(text, result.Feedback)
	})
	return original.WithPrompt(prompt)
}
