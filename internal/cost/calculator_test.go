package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokens(t *testing.T) {
	calc := NewCalculator(DefaultRates())

	// 1M input at $3.00 + 1M output at $15.00
	assert.InDelta(t, 18.0, calc.Tokens("claude-sonnet-4-5-20250929", 1_000_000, 1_000_000), 0.001)

	// 500k input at $0.80 + 100k output at $4.00
	assert.InDelta(t, 0.80, calc.Tokens("claude-haiku-4-5-20251001", 500_000, 100_000), 0.001)

	assert.Equal(t, 0.0, calc.Tokens("claude-sonnet-4-5-20250929", 0, 0))
}

func TestTokensUnknownModel(t *testing.T) {
	calc := NewCalculator(DefaultRates())
	assert.Equal(t, 0.0, calc.Tokens("mystery-model", 1_000_000, 1_000_000))
}

func TestTokensCustomRates(t *testing.T) {
	calc := NewCalculator(Rates{Anthropic: map[string]ModelRate{
		"custom": {Input: 1.00, Output: 2.00},
	}})
	assert.InDelta(t, 0.3, calc.Tokens("custom", 100_000, 100_000), 0.0001)
}
