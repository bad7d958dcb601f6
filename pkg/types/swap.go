package types

// SwapRequest represents a user's swap command
type SwapRequest struct {
	Amount      string
	SourceToken string
	DestToken   string
}

// QuoteDisplay holds formatted quote information for display
type QuoteDisplay struct {
	SourceAmount string
	SourceToken  string
	DestAmount   string
	DestToken    string
	MinimumOut   string
	PriceImpact  string
	SlippageBps  int
	FeeBps       int
	Route        []string
}

// SwapStatus represents the on-chain status of a submitted swap
type SwapStatus struct {
	Signature          string  `json:"signature"`
	Slot               uint64  `json:"slot"`
	ConfirmationStatus string  `json:"confirmationStatus"`
	Confirmations      *uint64 `json:"confirmations,omitempty"`
	Err                string  `json:"err,omitempty"`
}
