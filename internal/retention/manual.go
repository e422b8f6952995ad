package retention

import (
	"context"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/apperr"
	"github.com/orderflow/orderflow/internal/model"
)

// ManualDeleter is the ADMIN-actor path: an immediate, single-document
// soft delete (not subject to the retention window or batch loop)
// that always emits a MANUAL_DELETE audit entry.
type ManualDeleter struct {
	Store Store
}

// DeleteDocument immediately soft-deletes documentID and records the
// audit trail entry, since a manual ADMIN delete is never anonymous.
func (m *ManualDeleter) DeleteDocument(ctx context.Context, org uuid.UUID, documentID uuid.UUID, actorID string) error {
	const op = "retention.ManualDeleter.DeleteDocument"

	if err := m.Store.SoftDeleteDocumentByID(ctx, org, documentID); err != nil {
		return apperr.Transient(op, "manual document delete failed", err)
	}

	if err := m.Store.RecordAudit(ctx, org, actorID, documentID, model.AuditManualDelete, map[string]any{
		"document_id": documentID.String(),
	}); err != nil {
		return apperr.Transient(op, "manual delete audit record failed", err)
	}
	return nil
}
