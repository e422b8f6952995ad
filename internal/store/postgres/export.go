package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/orderflow/orderflow/internal/apperr"
	"github.com/orderflow/orderflow/internal/export"
)

// RecordExportAttempt upserts the erp_exports row for this push attempt
// and records the file-name-to-export-id mapping the ack reconciler
// needs once the ERP drops a matching ack_*.json back.
func (s *Store) RecordExportAttempt(ctx context.Context, rec export.ExportRecord) error {
	const op = "postgres.RecordExportAttempt"
	const upsert = `
		INSERT INTO erp_exports (id, draft_order_id, status, dropzone_path, created_at)
		VALUES ($1, $2, 'SENT', $3, $4)
		ON CONFLICT (id) DO UPDATE SET status = 'SENT', dropzone_path = EXCLUDED.dropzone_path`
	if _, err := s.pool.Exec(ctx, upsert, rec.ExportID, rec.DraftOrderID, rec.FileName, rec.PushedAt); err != nil {
		return apperr.Transient(op, "export attempt upsert failed", err)
	}

	const mapFile = `
		INSERT INTO export_file_names (file_name, export_id)
		VALUES ($1, $2)
		ON CONFLICT (file_name) DO UPDATE SET export_id = EXCLUDED.export_id`
	if _, err := s.pool.Exec(ctx, mapFile, rec.FileName, rec.ExportID); err != nil {
		return apperr.Transient(op, "export file name mapping failed", err)
	}
	return nil
}

// UpdateExportStatus applies an ack/error outcome to an erp_exports row.
func (s *Store) UpdateExportStatus(ctx context.Context, exportID string, status string, errMsg, erpOrderID *string) error {
	const op = "postgres.UpdateExportStatus"
	const query = `
		UPDATE erp_exports
		SET status = $2, erp_order_id = $3, error_json = CASE WHEN $4::text IS NULL THEN error_json ELSE jsonb_build_object('message', $4::text) END
		WHERE id = $1`
	if _, err := s.pool.Exec(ctx, query, exportID, status, erpOrderID, errMsg); err != nil {
		return apperr.Transient(op, "export status update failed", err)
	}
	return nil
}

// ResolveExportID maps an ack file name back to the export it
// acknowledges via the export_file_names table written by
// RecordExportAttempt.
func (s *Store) ResolveExportID(ctx context.Context, fileName string) (string, bool) {
	const query = `SELECT export_id FROM export_file_names WHERE file_name = $1`
	var id string
	err := s.pool.QueryRow(ctx, query, fileName).Scan(&id)
	if err == pgx.ErrNoRows {
		return "", false
	}
	if err != nil {
		return "", false
	}
	return id, true
}

// ExportPushedAt reads erp_exports.created_at for exportID's push
// timestamp and recovers the org slug embedded in the export ID
// ("export:<orgSlug>:<draftID>", the same idempotency-key format
// export.Pipeline.Push generates) rather than a second join, since the
// reconciler only needs the slug for a metric label.
func (s *Store) ExportPushedAt(ctx context.Context, exportID string) (string, time.Time, bool) {
	const query = `SELECT created_at FROM erp_exports WHERE id = $1`
	var pushedAt time.Time
	if err := s.pool.QueryRow(ctx, query, exportID).Scan(&pushedAt); err != nil {
		return "", time.Time{}, false
	}
	orgSlug := "unknown"
	if parts := strings.SplitN(exportID, ":", 3); len(parts) == 3 {
		orgSlug = parts[1]
	}
	return orgSlug, pushedAt, true
}

var (
	_ export.Store    = (*Store)(nil)
	_ export.AckStore = (*Store)(nil)
)
