// Package retention implements the C11 daily purge job: per org,
// soft-delete Documents past their raw-document retention window and
// hard-delete AICallLogs past the AI-call-log retention window, in
// batches so a single run never locks an entire table.
package retention

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/model"
)

// Store is the narrow persistence port the retention job needs. It is
// deliberately batch-oriented (BatchSize rows per call, looped by the
// caller) rather than a single unbounded DELETE, mirroring the
// §4.11 "batch size 1000" requirement.
type Store interface {
	// SoftDeleteDocuments transitions up to batchSize Documents with
	// org_id = org and created_at < olderThan to DELETED, clearing their
	// storage key, and returns how many rows it touched.
	// SoftDeleteDocumentByID below changes only the status.
	SoftDeleteDocuments(ctx context.Context, org uuid.UUID, olderThan time.Time, batchSize int) (int, error)
	// HardDeleteAICallLogs permanently removes up to batchSize
	// ai_call_logs rows with org_id = org and created_at < olderThan.
	HardDeleteAICallLogs(ctx context.Context, org uuid.UUID, olderThan time.Time, batchSize int) (int, error)
	// SoftDeleteDocumentByID transitions a single Document to DELETED
	// regardless of age, for the ADMIN manual-delete path.
	SoftDeleteDocumentByID(ctx context.Context, org, documentID uuid.UUID) error
	// OrgIDs lists every tenant the job must sweep.
	OrgIDs(ctx context.Context) ([]uuid.UUID, error)
	// RetentionDays returns (rawDocumentDays, aiCallLogDays) for org,
	// falling back to the process-wide defaults when the org has not
	// overridden them.
	RetentionDays(ctx context.Context, org uuid.UUID) (rawDocumentDays int, aiCallLogDays int, err error)
	// RecordAudit appends an AuditLog entry. Used for manual ADMIN
	// deletes here, and generally enough for draft-lifecycle transitions
	// that cmd/orderflow's approve command also records through it.
	RecordAudit(ctx context.Context, org uuid.UUID, actorID string, subjectID uuid.UUID, action model.AuditAction, details map[string]any) error
}
