package budget

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultTokensPerChar is the estimation ratio: 0.8 tokens per
// character. It deliberately overestimates for Latin text so selections
// stay inside the real budget.
const DefaultTokensPerChar = 0.8

// Counter estimates the token cost of a text and converts a token
// budget back into a character budget for truncation.
type Counter interface {
	// Count returns the estimated token cost of text.
	Count(text string) float64

	// CharBudget returns how many characters fit into a token budget.
	CharBudget(tokens float64) int
}

// EstimateCounter counts tokens as runes times a fixed ratio.
type EstimateCounter struct {
	tokensPerChar float64
}

// NewEstimateCounter creates an EstimateCounter. A ratio of 0 falls
// back to DefaultTokensPerChar.
func NewEstimateCounter(tokensPerChar float64) *EstimateCounter {
	if tokensPerChar <= 0 {
		tokensPerChar = DefaultTokensPerChar
	}
	return &EstimateCounter{tokensPerChar: tokensPerChar}
}

// Count returns rune count times the configured ratio.
func (c *EstimateCounter) Count(text string) float64 {
	return float64(len([]rune(text))) * c.tokensPerChar
}

// CharBudget converts a token budget into a character budget.
func (c *EstimateCounter) CharBudget(tokens float64) int {
	if tokens <= 0 {
		return 0
	}
	return int(tokens / c.tokensPerChar)
}

// tiktoken encodings per model family. Unknown models fall back to
// cl100k_base.
var modelEncodings = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4o-mini":   "o200k_base",
	"gpt-4-turbo":   "cl100k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
}

// TiktokenCounter counts tokens with a real tiktoken encoding. The
// encoding initializes lazily because tiktoken may download vocabulary
// data on first use; initialization failure degrades to character
// estimation.
type TiktokenCounter struct {
	encoding string
	fallback *EstimateCounter

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

// NewTiktokenCounter creates a counter for the given model.
func NewTiktokenCounter(model string) *TiktokenCounter {
	encoding, ok := modelEncodings[model]
	if !ok {
		encoding = "cl100k_base"
	}
	return &TiktokenCounter{
		encoding: encoding,
		fallback: NewEstimateCounter(0),
	}
}

func (c *TiktokenCounter) init() error {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err != nil {
			c.initErr = fmt.Errorf("init tiktoken encoding %s: %w", c.encoding, err)
			return
		}
		c.enc = enc
	})
	return c.initErr
}

// Count returns the exact token count, or the character estimate when
// the encoding is unavailable.
func (c *TiktokenCounter) Count(text string) float64 {
	if err := c.init(); err != nil {
		return c.fallback.Count(text)
	}
	return float64(len(c.enc.Encode(text, nil, nil)))
}

// CharBudget converts tokens to characters using the estimation ratio.
// Exact per-character token costs are not invertible, so truncation
// always works on the conservative estimate.
func (c *TiktokenCounter) CharBudget(tokens float64) int {
	return c.fallback.CharBudget(tokens)
}
