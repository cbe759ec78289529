package billing

import (
	"github.com/shopspring/decimal"

	"github.com/gluk-w/claworc/launchpad-ai/internal/providers"
)

// Rates are cents per million tokens.
type Rates struct {
	Input  decimal.Decimal
	Output decimal.Decimal
}

// RateTable prices one backend. When Extended is set, calls whose input
// token count is above Threshold use it for both input and output.
type RateTable struct {
	Standard  Rates
	Extended  *Rates
	Threshold int64
}

func (t RateTable) ratesFor(inputTokens int64) Rates {
	if t.Extended != nil && inputTokens > t.Threshold {
		return *t.Extended
	}
	return t.Standard
}

// Cost is the price of one call. Each component is rounded up to a whole
// cent before summing.
type Cost struct {
	InputCostCents  int64 `json:"input_cost_cents"`
	OutputCostCents int64 `json:"output_cost_cents"`
	TotalCostCents  int64 `json:"total_cost_cents"`
}

// LongContextThreshold is the input size above which the vision backend
// bills at its extended rates.
const LongContextThreshold = 200_000

var rateTables = map[providers.Backend]RateTable{
	providers.BackendText: {
		Standard: Rates{Input: decimal.NewFromInt(300), Output: decimal.NewFromInt(1500)},
	},
	providers.BackendVision: {
		Standard:  Rates{Input: decimal.NewFromInt(125), Output: decimal.NewFromInt(1000)},
		Extended:  &Rates{Input: decimal.NewFromInt(250), Output: decimal.NewFromInt(1500)},
		Threshold: LongContextThreshold,
	},
}

// RateTableFor returns the pricing of backend. Unknown backends are priced
// like the text backend.
func RateTableFor(b providers.Backend) RateTable {
	if t, ok := rateTables[b]; ok {
		return t
	}
	return rateTables[providers.BackendText]
}

// ComputeCost prices a call from its estimated usage.
func ComputeCost(u providers.TokenUsage) Cost {
	rates := RateTableFor(u.Backend).ratesFor(u.InputTokens)
	in := centsFor(u.InputTokens, rates.Input)
	out := centsFor(u.OutputTokens, rates.Output)
	return Cost{InputCostCents: in, OutputCostCents: out, TotalCostCents: in + out}
}

func centsFor(tokens int64, perMillion decimal.Decimal) int64 {
	if tokens <= 0 {
		return 0
	}
	return decimal.NewFromInt(tokens).Mul(perMillion).Shift(-6).Ceil().IntPart()
}
