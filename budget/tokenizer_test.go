package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCounter_Count(t *testing.T) {
	t.Parallel()

	c := NewEstimateCounter(0)

	tests := []struct {
		name string
		text string
		want float64
	}{
		{"empty", "", 0},
		{"ascii", "abcde", 4.0},
		{"chinese runes count once", "你好", 1.6},
		{"mixed", "hi你好", 3.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, c.Count(tt.text), 1e-9)
		})
	}
}

func TestEstimateCounter_CharBudget(t *testing.T) {
	t.Parallel()

	c := NewEstimateCounter(0)

	assert.Equal(t, 100, c.CharBudget(80))
	assert.Equal(t, 0, c.CharBudget(0))
	assert.Equal(t, 0, c.CharBudget(-5))

	halved := NewEstimateCounter(0.5)
	assert.Equal(t, 40, halved.CharBudget(20))
}

func TestEstimateCounter_ZeroRatioFallsBack(t *testing.T) {
	t.Parallel()

	c := NewEstimateCounter(0)
	assert.InDelta(t, DefaultTokensPerChar, c.Count("a"), 1e-9)
}

func TestTiktokenCounter_CountsOrDegrades(t *testing.T) {
	t.Parallel()

	// The encoding may be unavailable in the test environment; either
	// way the counter must return a positive cost for non-empty text.
	c := NewTiktokenCounter("gpt-4")
	assert.Greater(t, c.Count("hello world"), 0.0)
	assert.Zero(t, c.Count(""))
}

func TestTiktokenCounter_CharBudgetUsesEstimate(t *testing.T) {
	t.Parallel()

	c := NewTiktokenCounter("unknown-model")
	assert.Equal(t, 10, c.CharBudget(8))
}
