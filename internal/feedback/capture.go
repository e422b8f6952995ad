package feedback

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/apperr"
	"github.com/orderflow/orderflow/internal/model"
)

// inputSnippetCap is the §4.10 1500-character cap on the surrounding
// document text stored alongside a correction.
const inputSnippetCap = 1500

// Capturer records operator corrections as FeedbackEvents.
type Capturer struct {
	Store Store
}

// Record builds and appends one FeedbackEvent, truncating before/after
// payloads and the input snippet rather than rejecting an oversized
// correction: a correction is operator-entered data already accepted
// into the draft, so the capture step degrades gracefully instead of
// discarding the signal.
func (c *Capturer) Record(ctx context.Context, org uuid.UUID, eventType model.FeedbackEventType, before, after map[string]any, layoutFingerprint, inputSnippet, actor string) error {
	const op = "feedback.Record"

	ev := model.FeedbackEvent{
		OrgID:        org,
		ID:           uuid.New(),
		EventType:    eventType,
		BeforeJSON:   capPayload(before),
		AfterJSON:    capPayload(after),
		InputSnippet: truncateRunes(inputSnippet, inputSnippetCap),
		Actor:        actor,
		CreatedAt:    time.Now().UTC(),
	}
	if layoutFingerprint != "" {
		lf := layoutFingerprint
		ev.LayoutFingerprint = &lf
	}

	if err := c.Store.AppendEvent(ctx, ev); err != nil {
		return apperr.Transient(op, "feedback event append failed", err)
	}

	if ev.LayoutFingerprint != nil {
		sawExample := eventType == model.FeedbackExtractionLineCorrected || eventType == model.FeedbackExtractionFieldCorrected
		// Counter bump is best-effort: a failure here must never turn a
		// successfully appended correction into an error for the caller.
		_ = c.Store.BumpLayoutProfile(ctx, org, *ev.LayoutFingerprint, sawExample)
	}
	return nil
}

// capPayload truncates m to model.FeedbackPayloadCap bytes of marshaled
// JSON, replacing it with a single truncation marker if it overflows
// rather than trying to drop individual keys in marshal order.
func capPayload(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil || len(b) <= model.FeedbackPayloadCap {
		return m
	}
	cut := model.FeedbackPayloadCap
	if cut > len(b) {
		cut = len(b)
	}
	return map[string]any{
		"_truncated": true,
		"_preview":   string(b[:cut]),
	}
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
