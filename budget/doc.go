// Package budget fits a bounded window of conversation history into a
// model's token budget. Token counts are estimates by default (a fixed
// tokens-per-character ratio, not a real tokenizer); an exact
// tiktoken-backed counter is available for OpenAI-family models.
package budget
