package types

// DefaultTokenLimit is used for models missing from the limit table.
const DefaultTokenLimit = 4096

// ModelTokenLimits maps model names to their total context window size.
// The table mirrors the provider adapters' published limits; unknown
// models fall back to DefaultTokenLimit.
var ModelTokenLimits = map[string]int{
	"gpt-4o":            128000,
	"gpt-4o-mini":       128000,
	"gpt-4-turbo":       128000,
	"gpt-4":             8192,
	"gpt-3.5-turbo":     16385,
	"claude-3-5-sonnet": 200000,
	"claude-3-haiku":    200000,
	"deepseek-chat":     64000,
	"glm-4":             128000,
	"qwen-plus":         131072,
	"gemini-1.5-pro":    1048576,
}

// TokenLimitFor returns the context window size for a model, falling
// back to DefaultTokenLimit when the model is unknown.
func TokenLimitFor(model string) int {
	if limit, ok := ModelTokenLimits[model]; ok {
		return limit
	}
	return DefaultTokenLimit
}
