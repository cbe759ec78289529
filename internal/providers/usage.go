package providers

import "unicode/utf8"

// TokenUsage is the token count of one completed call.
//
// Counts are ESTIMATES: streaming backends do not report exact usage, so the
// client derives them from character counts through a TokenEstimator. Billing
// inherits this approximation.
type TokenUsage struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	Backend      Backend `json:"backend,omitempty"`
}

// TokenEstimator turns prompt and response text into token counts.
type TokenEstimator interface {
	Estimate(prompt, response string) (inputTokens, outputTokens int64)
}

// CharEstimator counts one token per CharsPerToken characters, rounding up.
// The result is deterministic for a given text.
type CharEstimator struct {
	CharsPerToken int
}

// DefaultEstimator is the four-characters-per-token heuristic.
var DefaultEstimator TokenEstimator = CharEstimator{CharsPerToken: 4}

func (e CharEstimator) Estimate(prompt, response string) (int64, int64) {
	return e.count(prompt), e.count(response)
}

func (e CharEstimator) count(s string) int64 {
	per := e.CharsPerToken
	if per <= 0 {
		per = 4
	}
	n := int64(utf8.RuneCountInString(s))
	return (n + int64(per) - 1) / int64(per)
}
