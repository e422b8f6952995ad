package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/apperr"
	"github.com/orderflow/orderflow/internal/feedback"
	"github.com/orderflow/orderflow/internal/model"
)

var _ feedback.Store = (*Store)(nil)

// AppendEvent inserts one FeedbackEvent row, the append-only correction
// log the few-shot retriever later scopes by layout fingerprint.
func (s *Store) AppendEvent(ctx context.Context, ev model.FeedbackEvent) error {
	const op = "postgres.AppendEvent"
	before, err := json.Marshal(ev.BeforeJSON)
	if err != nil {
		return apperr.Fatal(op, "before_json marshal failed", err)
	}
	after, err := json.Marshal(ev.AfterJSON)
	if err != nil {
		return apperr.Fatal(op, "after_json marshal failed", err)
	}

	const query = `
		INSERT INTO feedback_events (id, org_id, event_type, before_json, after_json,
		                              layout_fingerprint, input_snippet, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = s.pool.Exec(ctx, query, ev.ID, ev.OrgID, ev.EventType, before, after,
		ev.LayoutFingerprint, ev.InputSnippet, ev.Actor, ev.CreatedAt)
	if err != nil {
		return apperr.Transient(op, "feedback event insert failed", err)
	}
	return nil
}

// RecentByLayout returns up to limit FeedbackEvents of the given types
// for (org, layoutFingerprint), newest first.
func (s *Store) RecentByLayout(ctx context.Context, org uuid.UUID, layoutFingerprint string, types []model.FeedbackEventType, limit int) ([]model.FeedbackEvent, error) {
	const op = "postgres.RecentByLayout"
	const query = `
		SELECT id, event_type, before_json, after_json, input_snippet, actor, created_at
		FROM feedback_events
		WHERE org_id = $1 AND layout_fingerprint = $2 AND event_type = ANY($3)
		ORDER BY created_at DESC
		LIMIT $4`

	typeStrs := make([]string, len(types))
	for i, t := range types {
		typeStrs[i] = string(t)
	}

	rows, err := s.pool.Query(ctx, query, org, layoutFingerprint, typeStrs, limit)
	if err != nil {
		return nil, apperr.Transient(op, "layout-scoped feedback query failed", err)
	}
	defer rows.Close()

	var out []model.FeedbackEvent
	for rows.Next() {
		var ev model.FeedbackEvent
		var before, after []byte
		if err := rows.Scan(&ev.ID, &ev.EventType, &before, &after, &ev.InputSnippet, &ev.Actor, &ev.CreatedAt); err != nil {
			return nil, apperr.Transient(op, "feedback event scan failed", err)
		}
		ev.OrgID = org
		lf := layoutFingerprint
		ev.LayoutFingerprint = &lf
		_ = json.Unmarshal(before, &ev.BeforeJSON)
		_ = json.Unmarshal(after, &ev.AfterJSON)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// BumpLayoutProfile upserts the (org, layoutFingerprint) seen/example
// counters, creating the row on first sight.
func (s *Store) BumpLayoutProfile(ctx context.Context, org uuid.UUID, layoutFingerprint string, sawExample bool) error {
	const op = "postgres.BumpLayoutProfile"
	const upsert = `
		INSERT INTO doc_layout_profiles (org_id, layout_fingerprint, seen_count, example_count, last_seen_at)
		VALUES ($1, $2, 1, $3, now())
		ON CONFLICT (org_id, layout_fingerprint) DO UPDATE
		SET seen_count = doc_layout_profiles.seen_count + 1,
		    example_count = doc_layout_profiles.example_count + EXCLUDED.example_count,
		    last_seen_at = now()`
	exampleCount := 0
	if sawExample {
		exampleCount = 1
	}
	if _, err := s.pool.Exec(ctx, upsert, org, layoutFingerprint, exampleCount); err != nil {
		return apperr.Transient(op, "layout profile upsert failed", err)
	}
	return nil
}
