package budget

import (
	"strings"

	"go.uber.org/zap"

	"github.com/seedchat/memkit/types"
)

const (
	// DefaultReserveTokens is held back for the model's response.
	DefaultReserveTokens = 1000

	// DefaultContextRatio is the share of the remaining window given to
	// conversation history.
	DefaultContextRatio = 0.7

	// minTruncateTokens is the smallest leftover budget worth filling
	// with a truncated message. Below this the allocator stops instead.
	minTruncateTokens = 100
)

// sentenceEnders mark positions where a truncated message may cleanly
// stop.
const sentenceEnders = ".!?。！？"

// Config tunes the allocator.
type Config struct {
	// ModelLimits maps model names to context window sizes. Nil falls
	// back to types.ModelTokenLimits.
	ModelLimits map[string]int `yaml:"model_limits" json:"model_limits"`

	// ReserveTokens is subtracted from the window for the response.
	ReserveTokens int `yaml:"reserve_tokens" json:"reserve_tokens"`

	// ContextRatio scales what is left after the reserve.
	ContextRatio float64 `yaml:"context_ratio" json:"context_ratio"`

	// TokensPerChar is the estimation ratio of the default counter.
	TokensPerChar float64 `yaml:"tokens_per_char" json:"tokens_per_char"`
}

// DefaultConfig returns the allocator defaults.
func DefaultConfig() Config {
	return Config{
		ReserveTokens: DefaultReserveTokens,
		ContextRatio:  DefaultContextRatio,
		TokensPerChar: DefaultTokensPerChar,
	}
}

// Allocator selects and truncates conversation history to fit a
// reserved token budget. Selection walks newest to oldest; the output
// is strictly chronological and at most one message is ever truncated,
// always the oldest one included.
type Allocator struct {
	config  Config
	counter Counter
	logger  *zap.Logger
}

// NewAllocator creates an Allocator. A nil counter falls back to
// character estimation with the configured ratio.
func NewAllocator(config Config, counter Counter, logger *zap.Logger) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ReserveTokens <= 0 {
		config.ReserveTokens = DefaultReserveTokens
	}
	if config.ContextRatio <= 0 || config.ContextRatio > 1 {
		config.ContextRatio = DefaultContextRatio
	}
	if counter == nil {
		counter = NewEstimateCounter(config.TokensPerChar)
	}
	return &Allocator{
		config:  config,
		counter: counter,
		logger:  logger.With(zap.String("component", "context_budget")),
	}
}

// tokenLimit resolves the model's context window size.
func (a *Allocator) tokenLimit(model string) int {
	if limit, ok := a.config.ModelLimits[model]; ok {
		return limit
	}
	return types.TokenLimitFor(model)
}

// AvailableBudget returns the history token budget for a model:
// (window - reserve) * ratio.
func (a *Allocator) AvailableBudget(model string) float64 {
	return a.availableBudget(model, a.config.ContextRatio)
}

func (a *Allocator) availableBudget(model string, ratio float64) float64 {
	budget := float64(a.tokenLimit(model)-a.config.ReserveTokens) * ratio
	if budget < 0 {
		return 0
	}
	return budget
}

// Select fits messages into the model's history budget after deducting
// the current prompt, using the configured context ratio.
func (a *Allocator) Select(messages []types.Message, currentPrompt, model string) []types.Message {
	return a.SelectWithRatio(messages, currentPrompt, model, a.config.ContextRatio)
}

// SelectWithRatio is Select with an explicit context ratio.
//
// Messages are scanned newest to oldest. A message that fits the
// remaining budget is included whole. The first message that does not
// fit is truncated to the leftover budget when that leftover exceeds
// minTruncateTokens, and scanning stops either way.
func (a *Allocator) SelectWithRatio(messages []types.Message, currentPrompt, model string, ratio float64) []types.Message {
	if ratio <= 0 || ratio > 1 {
		ratio = a.config.ContextRatio
	}

	remaining := a.availableBudget(model, ratio) - a.counter.Count(currentPrompt)
	if remaining <= 0 {
		return nil
	}

	var selected []types.Message
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		cost := a.counter.Count(msg.Content)

		if cost <= remaining {
			selected = append([]types.Message{msg}, selected...)
			remaining -= cost
			continue
		}

		if remaining > minTruncateTokens {
			msg.Content = a.truncate(msg.Content, remaining)
			selected = append([]types.Message{msg}, selected...)
		}
		break
	}

	a.logger.Debug("history selected",
		zap.String("model", model),
		zap.Int("total", len(messages)),
		zap.Int("selected", len(selected)),
		zap.Float64("remaining_tokens", remaining))

	return selected
}

// truncate cuts content down to a token budget, preferring the last
// sentence boundary after the halfway mark of the character budget. A
// hard cut appends an ellipsis; ellipsis characters are pre-charged so
// the result never exceeds the budget.
func (a *Allocator) truncate(content string, tokens float64) string {
	runes := []rune(content)
	charBudget := a.counter.CharBudget(tokens) - len("...")
	if charBudget <= 0 {
		return ""
	}
	if charBudget >= len(runes) {
		return content
	}

	half := charBudget / 2
	cut := -1
	for i := charBudget - 1; i >= half; i-- {
		if strings.ContainsRune(sentenceEnders, runes[i]) {
			cut = i
			break
		}
	}
	if cut >= 0 {
		return string(runes[:cut+1])
	}
	return string(runes[:charBudget]) + "..."
}
