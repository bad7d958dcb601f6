package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSwapCommand(t *testing.T) {
	tests := []struct {
		in           string
		amount       string
		source, dest string
	}{
		{"swap 10 USDT to SOL", "10", "USDT", "SOL"},
		{"1.5 sol to usdc", "1.5", "SOL", "USDC"},
		{"  swap   2.   wsol   TO  jup ", "2", "SOL", "JUP"},
		{"100 USDC to JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", "100", "USDC", "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			req, err := ParseSwapCommand(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.amount, req.Amount)
			assert.Equal(t, tt.source, req.SourceToken)
			assert.Equal(t, tt.dest, req.DestToken)
		})
	}
}

func TestParseSwapCommandErrors(t *testing.T) {
	for _, in := range []string{"", "swap SOL to USDC", "swap -1 SOL to USDC", "swap 1 SOL USDC", "swap 1 SOL to sol"} {
		_, err := ParseSwapCommand(in)
		assert.Error(t, err, in)
	}
}

func TestParsePair(t *testing.T) {
	in, out, err := ParsePair([]string{"usdt", "to", "sol"})
	require.NoError(t, err)
	assert.Equal(t, "USDT", in)
	assert.Equal(t, "SOL", out)

	_, _, err = ParsePair([]string{"usdt"})
	assert.Error(t, err)
}
