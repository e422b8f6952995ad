// Package feedback implements the C10 learning loop: every operator
// correction is captured as an append-only FeedbackEvent, and the
// layout-scoped subset of those events feeds the few-shot hints C4's
// extractor injects into its next prompt for documents of the same
// shape. This closes the loop the teacher's invoice pipeline never had
// (it had no correction capture at all) — grounded in shape on the same
// "narrow port per component" pattern as internal/matching and
// internal/export.
package feedback

import (
	"context"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/model"
)

// Store is the narrow persistence port the feedback component needs:
// appending events, retrieving layout-scoped hints, and bumping the
// aggregate layout-profile counters.
type Store interface {
	AppendEvent(ctx context.Context, ev model.FeedbackEvent) error
	// RecentByLayout returns up to limit FeedbackEvents of the given
	// types for (org, layoutFingerprint), newest first.
	RecentByLayout(ctx context.Context, org uuid.UUID, layoutFingerprint string, types []model.FeedbackEventType, limit int) ([]model.FeedbackEvent, error)
	// BumpLayoutProfile increments seen_count (and example_count when
	// sawExample is true) for (org, layoutFingerprint), creating the row
	// on first sight.
	BumpLayoutProfile(ctx context.Context, org uuid.UUID, layoutFingerprint string, sawExample bool) error
}
