package feedback

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/apperr"
	"github.com/orderflow/orderflow/internal/llmextract"
	"github.com/orderflow/orderflow/internal/model"
)

// maxHints is the §4.10 cap of 3 few-shot examples injected per prompt.
const maxHints = 3

// hintEventTypes are the only FeedbackEvent types that double as
// few-shot training material: a mapping confirm/reject or a customer
// selection doesn't carry an (input, output) extraction pair.
var hintEventTypes = []model.FeedbackEventType{
	model.FeedbackExtractionLineCorrected,
	model.FeedbackExtractionFieldCorrected,
}

// Retriever looks up layout-scoped few-shot hints for the extractor.
type Retriever struct {
	Store Store
}

// Hints returns up to 3 llmextract.FewShotExample built from the most
// recent corrected-extraction events recorded for (org,
// layoutFingerprint). An empty layoutFingerprint (non-PDF or
// fingerprint-unavailable documents) always yields no hints: §4.1's
// failure semantics mean such a document never scopes into the
// layout-keyed example store.
func (r *Retriever) Hints(ctx context.Context, org uuid.UUID, layoutFingerprint string) ([]llmextract.FewShotExample, error) {
	const op = "feedback.Hints"
	if layoutFingerprint == "" {
		return nil, nil
	}

	events, err := r.Store.RecentByLayout(ctx, org, layoutFingerprint, hintEventTypes, maxHints)
	if err != nil {
		return nil, apperr.Transient(op, "layout-scoped feedback lookup failed", err)
	}

	out := make([]llmextract.FewShotExample, 0, len(events))
	for _, ev := range events {
		out = append(out, llmextract.FewShotExample{
			InputSnippet: ev.InputSnippet,
			OutputJSON:   renderOutput(ev.AfterJSON),
		})
	}
	return out, nil
}

func renderOutput(after map[string]any) string {
	b, err := json.Marshal(after)
	if err != nil {
		return ""
	}
	return string(b)
}
