package provider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/orderflow/internal/provider"
)

type failingLLM struct{ calls int }

func (f *failingLLM) Chat(ctx context.Context, req provider.ChatRequest) (provider.ChatResult, error) {
	f.calls++
	return provider.ChatResult{}, errors.New("boom")
}

func TestBreakingLLM_TripsAfterConsecutiveFailures(t *testing.T) {
	inner := &failingLLM{}
	b := provider.NewBreakingLLM(inner)

	for i := 0; i < 5; i++ {
		_, err := b.Chat(context.Background(), provider.ChatRequest{})
		require.Error(t, err)
	}
	callsBeforeTrip := inner.calls

	_, err := b.Chat(context.Background(), provider.ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, callsBeforeTrip, inner.calls, "breaker must short-circuit without calling inner once open")
}
