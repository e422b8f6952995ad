// Package draft implements the C8 draft lifecycle state machine.
package draft

import (
	"time"

	"github.com/orderflow/orderflow/internal/apperr"
	"github.com/orderflow/orderflow/internal/model"
)

var allowedTransitions = map[model.DraftStatus][]model.DraftStatus{
	model.DraftNeedsReview: {model.DraftReady},
	model.DraftReady:       {model.DraftNeedsReview, model.DraftApproved},
	model.DraftApproved:    {model.DraftNeedsReview, model.DraftPushing},
	model.DraftPushing:     {model.DraftPushed, model.DraftError},
	model.DraftError:       {model.DraftPushing},
}

// CanTransition reports whether from→to is an allowed §4.7 transition.
func CanTransition(from, to model.DraftStatus) bool {
	for _, c := range allowedTransitions[from] {
		if c == to {
			return true
		}
	}
	return false
}

// Transition applies a §4.7 transition to d in place, returning the
// AuditLog action it produces. Any out-of-set transition is a
// ConflictError (§7): the caller never overwrites state outside this
// function.
func Transition(d *model.DraftOrder, to model.DraftStatus, approverID string, now time.Time) (model.AuditAction, error) {
	const op = "draft.Transition"
	from := d.Status
	if !CanTransition(from, to) {
		return "", apperr.Conflict(op, "invalid draft transition "+string(from)+" -> "+string(to))
	}

	switch to {
	case model.DraftApproved:
		d.ApproverID = &approverID
		approvedAt := now
		d.ApprovedAt = &approvedAt
		d.Status = to
		return model.AuditDraftApproved, nil
	case model.DraftNeedsReview:
		wasApproved := from == model.DraftApproved
		d.Status = to
		d.ApproverID = nil
		d.ApprovedAt = nil
		if wasApproved {
			return model.AuditDraftApprovalRevoked, nil
		}
		return "", nil
	case model.DraftPushed:
		d.Status = to
		return model.AuditDraftPushed, nil
	case model.DraftError:
		d.Status = to
		return model.AuditDraftPushFailed, nil
	default:
		d.Status = to
		return "", nil
	}
}

// ApplyEdit reverts an APPROVED draft to NEEDS_REVIEW and clears
// approval metadata, per §3's DraftOrder invariant: "Editing an APPROVED
// draft reverts it to NEEDS_REVIEW and clears approval metadata." READY
// drafts also revert so a fresh validation pass is forced before the
// next approval. A draft already in NEEDS_REVIEW is left as it is; an
// edit of a PUSHING, PUSHED or ERROR draft is a ConflictError.
func ApplyEdit(d *model.DraftOrder) (model.AuditAction, error) {
	if d.Status == model.DraftNeedsReview {
		return "", nil
	}
	return Transition(d, model.DraftNeedsReview, "", time.Time{})
}
