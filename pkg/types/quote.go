package types

import (
	"encoding/json"

	"cosmossdk.io/math"
)

// Quote is an aggregator's priced route for an exact-input swap.
// Raw is the untouched response, handed back verbatim when building.
type Quote struct {
	InputMint            string
	OutputMint           string
	InAmount             math.Int
	OutAmount            math.Int
	OtherAmountThreshold math.Int
	PriceImpactPct       string
	SlippageBps          int
	PlatformFeeBps       int
	RoutePlan            []RouteStep
	Raw                  json.RawMessage
}

// RouteStep is one hop of a quoted route
type RouteStep struct {
	AMMKey     string
	Label      string
	InputMint  string
	OutputMint string
	Percent    int
}

// Labels returns the venue label of each hop
func (q *Quote) Labels() []string {
	labels := make([]string, 0, len(q.RoutePlan))
	for _, step := range q.RoutePlan {
		labels = append(labels, step.Label)
	}
	return labels
}

// Matches reports whether the quote was computed for the given pair and input amount
func (q *Quote) Matches(inputMint, outputMint string, inAmount math.Int) bool {
	if q == nil || q.InAmount.IsNil() || inAmount.IsNil() {
		return false
	}
	return q.InputMint == inputMint && q.OutputMint == outputMint && q.InAmount.Equal(inAmount)
}
