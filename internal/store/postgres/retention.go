package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/apperr"
	"github.com/orderflow/orderflow/internal/model"
	"github.com/orderflow/orderflow/internal/retention"
)

var _ retention.Store = (*Store)(nil)

// OrgIDs returns every org with at least one row in documents or
// ai_call_logs, the set the retention job sweeps each run.
func (s *Store) OrgIDs(ctx context.Context) ([]uuid.UUID, error) {
	const op = "postgres.OrgIDs"
	const query = `
		SELECT org_id FROM documents
		UNION
		SELECT org_id FROM ai_call_logs`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, apperr.Transient(op, "org enumeration query failed", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Transient(op, "org id scan failed", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// RetentionDays reads an org's raw_document_retention_days and
// ai_call_log_retention_days overrides from org_settings, falling back
// to the §6 defaults (365/90) when the org has never overridden them.
func (s *Store) RetentionDays(ctx context.Context, org uuid.UUID) (int, int, error) {
	const op = "postgres.RetentionDays"
	const query = `
		SELECT COALESCE(raw_document_retention_days, 365), COALESCE(ai_call_log_retention_days, 90)
		FROM org_settings WHERE org_id = $1`

	var rawDays, aiDays int
	err := s.pool.QueryRow(ctx, query, org).Scan(&rawDays, &aiDays)
	if err != nil {
		return 365, 90, nil
	}
	return rawDays, aiDays, nil
}

// SoftDeleteDocuments marks up to batchSize not-already-deleted
// documents older than olderThan as DELETED, the daily sweep's
// age-cutoff batch path.
func (s *Store) SoftDeleteDocuments(ctx context.Context, org uuid.UUID, olderThan time.Time, batchSize int) (int, error) {
	const op = "postgres.SoftDeleteDocuments"
	const query = `
		UPDATE documents SET status = 'DELETED', storage_key = ''
		WHERE id IN (
			SELECT id FROM documents
			WHERE org_id = $1 AND status != 'DELETED' AND created_at < $2
			ORDER BY created_at
			LIMIT $3
		)`

	tag, err := s.pool.Exec(ctx, query, org, olderThan, batchSize)
	if err != nil {
		return 0, apperr.Transient(op, "document soft-delete batch failed", err)
	}
	return int(tag.RowsAffected()), nil
}

// SoftDeleteDocumentByID marks one specific document DELETED, the
// immediate ADMIN-actor manual-delete path.
func (s *Store) SoftDeleteDocumentByID(ctx context.Context, org, documentID uuid.UUID) error {
	const op = "postgres.SoftDeleteDocumentByID"
	const query = `UPDATE documents SET status = 'DELETED' WHERE id = $1 AND org_id = $2`
	if _, err := s.pool.Exec(ctx, query, documentID, org); err != nil {
		return apperr.Transient(op, "manual document soft-delete failed", err)
	}
	return nil
}

// HardDeleteAICallLogs removes up to batchSize ai_call_logs rows older
// than olderThan: unlike documents, these carry no audit requirement
// once past retention, so they're removed outright rather than flagged.
func (s *Store) HardDeleteAICallLogs(ctx context.Context, org uuid.UUID, olderThan time.Time, batchSize int) (int, error) {
	const op = "postgres.HardDeleteAICallLogs"
	const query = `
		DELETE FROM ai_call_logs
		WHERE id IN (
			SELECT id FROM ai_call_logs
			WHERE org_id = $1 AND created_at < $2
			ORDER BY created_at
			LIMIT $3
		)`

	tag, err := s.pool.Exec(ctx, query, org, olderThan, batchSize)
	if err != nil {
		return 0, apperr.Transient(op, "ai call log hard-delete batch failed", err)
	}
	return int(tag.RowsAffected()), nil
}

// RecordAudit inserts an audit_log row for any auditable action (a
// manual retention delete, a draft-lifecycle transition), details
// marshaled to JSONB.
func (s *Store) RecordAudit(ctx context.Context, org uuid.UUID, actorID string, subjectID uuid.UUID, action model.AuditAction, details map[string]any) error {
	const op = "postgres.RecordAudit"
	raw, err := json.Marshal(details)
	if err != nil {
		return apperr.Fatal(op, "audit detail marshal failed", err)
	}

	const query = `
		INSERT INTO audit_log (id, org_id, actor_id, subject_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`
	if _, err := s.pool.Exec(ctx, query, uuid.New(), org, actorID, subjectID, string(action), raw); err != nil {
		return apperr.Transient(op, "audit log insert failed", err)
	}
	return nil
}
