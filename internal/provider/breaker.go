package provider

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// BreakingLLM wraps an LLMProviderPort with a circuit breaker so a
// provider outage fails fast instead of letting every orchestrator
// worker pile up retries against a dead endpoint.
type BreakingLLM struct {
	inner   LLMProviderPort
	breaker *gobreaker.CircuitBreaker
}

func NewBreakingLLM(inner LLMProviderPort) *BreakingLLM {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "llm-provider",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &BreakingLLM{inner: inner, breaker: cb}
}

func (b *BreakingLLM) Chat(ctx context.Context, req ChatRequest) (ChatResult, error) {
	res, err := b.breaker.Execute(func() (any, error) {
		return b.inner.Chat(ctx, req)
	})
	if err != nil {
		return ChatResult{}, err
	}
	return res.(ChatResult), nil
}

// BreakingEmbedding does the same for EmbeddingProviderPort.
type BreakingEmbedding struct {
	inner   EmbeddingProviderPort
	breaker *gobreaker.CircuitBreaker
}

func NewBreakingEmbedding(inner EmbeddingProviderPort) *BreakingEmbedding {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "embedding-provider",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &BreakingEmbedding{inner: inner, breaker: cb}
}

func (b *BreakingEmbedding) Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResult, error) {
	res, err := b.breaker.Execute(func() (any, error) {
		return b.inner.Embed(ctx, req)
	})
	if err != nil {
		return EmbeddingResult{}, err
	}
	return res.(EmbeddingResult), nil
}
