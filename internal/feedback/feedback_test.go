package feedback_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/orderflow/internal/feedback"
	"github.com/orderflow/orderflow/internal/model"
)

type fakeStore struct {
	events        []model.FeedbackEvent
	profileBumps  int
	profileExample bool
}

func (f *fakeStore) AppendEvent(ctx context.Context, ev model.FeedbackEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeStore) RecentByLayout(ctx context.Context, org uuid.UUID, layoutFingerprint string, types []model.FeedbackEventType, limit int) ([]model.FeedbackEvent, error) {
	allowed := map[model.FeedbackEventType]bool{}
	for _, t := range types {
		allowed[t] = true
	}
	var out []model.FeedbackEvent
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		ev := f.events[i]
		if ev.OrgID != org || ev.LayoutFingerprint == nil || *ev.LayoutFingerprint != layoutFingerprint {
			continue
		}
		if !allowed[ev.EventType] {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (f *fakeStore) BumpLayoutProfile(ctx context.Context, org uuid.UUID, layoutFingerprint string, sawExample bool) error {
	f.profileBumps++
	f.profileExample = sawExample
	return nil
}

func TestCapturer_Record_TruncatesOversizedPayload(t *testing.T) {
	store := &fakeStore{}
	c := feedback.Capturer{Store: store}
	org := uuid.New()

	huge := map[string]any{"blob": strings.Repeat("x", model.FeedbackPayloadCap*2)}
	err := c.Record(context.Background(), org, model.FeedbackExtractionLineCorrected, nil, huge, "fp-1", "some surrounding text", "user-1")
	require.NoError(t, err)

	require.Len(t, store.events, 1)
	assert.Equal(t, true, store.events[0].AfterJSON["_truncated"])
	assert.Equal(t, 1, store.profileBumps)
	assert.True(t, store.profileExample)
}

func TestCapturer_Record_TruncatesInputSnippet(t *testing.T) {
	store := &fakeStore{}
	c := feedback.Capturer{Store: store}
	org := uuid.New()

	longSnippet := strings.Repeat("a", 3000)
	err := c.Record(context.Background(), org, model.FeedbackMappingConfirmed, nil, nil, "", longSnippet, "user-1")
	require.NoError(t, err)

	require.Len(t, store.events, 1)
	assert.Len(t, []rune(store.events[0].InputSnippet), 1500)
	assert.Nil(t, store.events[0].LayoutFingerprint)
	assert.Equal(t, 0, store.profileBumps, "no layout fingerprint means no profile bump")
}

func TestRetriever_Hints_EmptyFingerprintReturnsNil(t *testing.T) {
	store := &fakeStore{}
	r := feedback.Retriever{Store: store}

	hints, err := r.Hints(context.Background(), uuid.New(), "")
	require.NoError(t, err)
	assert.Nil(t, hints)
}

func TestRetriever_Hints_ReturnsLayoutScopedExamplesNewestFirst(t *testing.T) {
	store := &fakeStore{}
	c := feedback.Capturer{Store: store}
	org := uuid.New()

	require.NoError(t, c.Record(context.Background(), org, model.FeedbackExtractionLineCorrected, nil,
		map[string]any{"internal_sku": "SKU-1"}, "fp-shared", "older correction", "user-1"))
	require.NoError(t, c.Record(context.Background(), org, model.FeedbackExtractionLineCorrected, nil,
		map[string]any{"internal_sku": "SKU-2"}, "fp-shared", "newer correction", "user-1"))
	require.NoError(t, c.Record(context.Background(), org, model.FeedbackMappingRejected, nil,
		map[string]any{"internal_sku": "SKU-3"}, "fp-shared", "not a hint", "user-1"))

	r := feedback.Retriever{Store: store}
	hints, err := r.Hints(context.Background(), org, "fp-shared")
	require.NoError(t, err)
	require.Len(t, hints, 2)
	assert.Equal(t, "newer correction", hints[0].InputSnippet)
	assert.Contains(t, hints[0].OutputJSON, "SKU-2")
	assert.Equal(t, "older correction", hints[1].InputSnippet)
}

func TestRetriever_Hints_CapsAtThree(t *testing.T) {
	store := &fakeStore{}
	c := feedback.Capturer{Store: store}
	org := uuid.New()

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Record(context.Background(), org, model.FeedbackExtractionFieldCorrected, nil,
			map[string]any{"qty": i}, "fp-cap", "snippet", "user-1"))
	}

	r := feedback.Retriever{Store: store}
	hints, err := r.Hints(context.Background(), org, "fp-cap")
	require.NoError(t, err)
	assert.Len(t, hints, 3)
}
