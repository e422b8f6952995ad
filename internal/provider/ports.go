// Package provider wraps the external LLM and embedding APIs behind
// narrow ports, grounded on the teacher's internal/llm.Client but
// generalized from one OpenRouter-specific client into the §6
// LLMProviderPort / EmbeddingProviderPort contracts plus a circuit
// breaker around each, since both are flaky third-party dependencies
// the orchestrator must not hammer during an outage.
package provider

import "context"

// ChatRequest is one call to the LLM extractor's chat completion.
type ChatRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
}

// ChatResult carries the raw text plus the token/cost accounting
// needed to populate an AICallLog row.
type ChatResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
	CostMicros   int64
}

// LLMProviderPort is the §6 port the extraction orchestrator calls
// through; any OpenAI-compatible backend (OpenAI, OpenRouter, Azure)
// satisfies it.
type LLMProviderPort interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResult, error)
}

// EmbeddingRequest is one embedding call for a line description or a
// product's catalog text.
type EmbeddingRequest struct {
	Model string
	Input string
}

type EmbeddingResult struct {
	Vector     []float32
	CostMicros int64
}

// EmbeddingProviderPort is the §6 port the matching engine's embedding
// candidate stage calls through.
type EmbeddingProviderPort interface {
	Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResult, error)
}
