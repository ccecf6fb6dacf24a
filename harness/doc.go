// Package harness provides the evaluation-and-retry advisor. The advisor sits
// in an advisor chain, forwards each call downstream, lets an LLM judge score
// the answer and, while the rating stays below the success threshold,
// re-issues the original request with the judge's feedback appended to the
// last user message.
//
// A typical setup:
//
//	judge := chatclient.NewBuilder(judgeModel)
//	h, err := harness.NewBuilder().
//		JudgeClientFactory(judge).
//		SuccessRating(4).
//		MaxRepeatAttempts(3).
//		Build()
//	client, err := chatclient.NewBuilder(primaryModel).DefaultAdvisors(h).Build()
//
// The loop is synchronous and keeps no state between calls, so one Advisor
// can serve concurrent requests.
package harness
