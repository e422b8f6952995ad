package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/orderflow/orderflow/internal/apperr"
	"github.com/orderflow/orderflow/internal/export"
	"github.com/orderflow/orderflow/internal/model"
)

var _ export.DraftSource = (*Store)(nil)

// GetDraft loads one org-scoped draft (header only, no lines) for the
// approve command's lifecycle transitions.
func (s *Store) GetDraft(ctx context.Context, org, draftID uuid.UUID) (*model.DraftOrder, error) {
	const op = "postgres.GetDraft"
	const query = `
		SELECT id, customer_id, document_id, status, external_order_number,
		       order_date, currency, requested_delivery_date, notes,
		       approver_id, approved_at, created_at
		FROM draft_orders
		WHERE id = $1 AND org_id = $2`

	var d model.DraftOrder
	d.OrgID = org
	err := s.pool.QueryRow(ctx, query, draftID, org).Scan(
		&d.ID, &d.CustomerID, &d.DocumentID, &d.Status,
		&d.Header.ExternalOrderNumber, &d.Header.OrderDate, &d.Header.Currency,
		&d.Header.RequestedDeliveryDate, &d.Header.Notes,
		&d.ApproverID, &d.ApprovedAt, &d.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, apperr.NotFound(op, "draft not found")
	}
	if err != nil {
		return nil, apperr.Transient(op, "draft lookup failed", err)
	}
	return &d, nil
}

// SaveDraftStatus persists the status/approver/approved_at fields
// draft.Transition mutated, the write half of GetDraft's read.
func (s *Store) SaveDraftStatus(ctx context.Context, d *model.DraftOrder) error {
	const op = "postgres.SaveDraftStatus"
	const query = `
		UPDATE draft_orders
		SET status = $2, approver_id = $3, approved_at = $4
		WHERE id = $1 AND org_id = $5`
	if _, err := s.pool.Exec(ctx, query, d.ID, d.Status, d.ApproverID, d.ApprovedAt, d.OrgID); err != nil {
		return apperr.Transient(op, "draft status update failed", err)
	}
	return nil
}

// RecentDuplicateExternalOrder reports whether a draft order for org
// already carries externalOrderNumber with created_at within window.
func (s *Store) RecentDuplicateExternalOrder(ctx context.Context, org uuid.UUID, externalOrderNumber string, window time.Duration) (bool, error) {
	const op = "postgres.RecentDuplicateExternalOrder"
	if externalOrderNumber == "" {
		return false, nil
	}
	const query = `
		SELECT EXISTS(
			SELECT 1 FROM draft_orders
			WHERE org_id = $1 AND external_order_number = $2 AND created_at > $3
		)`
	var found bool
	cutoff := time.Now().UTC().Add(-window)
	if err := s.pool.QueryRow(ctx, query, org, externalOrderNumber, cutoff).Scan(&found); err != nil {
		return false, apperr.Transient(op, "duplicate order lookup failed", err)
	}
	return found, nil
}

// DraftForExport loads everything export.BuildDocument needs for one
// approved draft: the draft header and lines, the source document row
// it was extracted from, and the customer fields the wire document's
// customer block carries.
func (s *Store) DraftForExport(ctx context.Context, org, draftID uuid.UUID) (export.DraftExportInput, error) {
	const op = "postgres.DraftForExport"
	const draftQuery = `
		SELECT id, customer_id, document_id, status, external_order_number,
		       order_date, currency, requested_delivery_date, notes,
		       approver_id, approved_at, created_at
		FROM draft_orders
		WHERE id = $1 AND org_id = $2`

	var d model.DraftOrder
	d.OrgID = org
	d.ID = draftID
	err := s.pool.QueryRow(ctx, draftQuery, draftID, org).Scan(
		&d.ID, &d.CustomerID, &d.DocumentID, &d.Status,
		&d.Header.ExternalOrderNumber, &d.Header.OrderDate, &d.Header.Currency,
		&d.Header.RequestedDeliveryDate, &d.Header.Notes,
		&d.ApproverID, &d.ApprovedAt, &d.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return export.DraftExportInput{}, apperr.NotFound(op, "draft not found")
	}
	if err != nil {
		return export.DraftExportInput{}, apperr.Transient(op, "draft lookup failed", err)
	}

	const lineQuery = `
		SELECT id, line_no, customer_sku_raw, description, qty, uom, unit_price,
		       currency, internal_sku, match_confidence, match_method, match_status
		FROM draft_order_lines
		WHERE draft_order_id = $1
		ORDER BY line_no`
	rows, err := s.pool.Query(ctx, lineQuery, draftID)
	if err != nil {
		return export.DraftExportInput{}, apperr.Transient(op, "draft line query failed", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l model.DraftOrderLine
		if err := rows.Scan(
			&l.ID, &l.LineNo, &l.CustomerSKURaw, &l.Description, &l.Qty, &l.UoM, &l.UnitPrice,
			&l.Currency, &l.InternalSKU, &l.MatchConfidence, &l.MatchMethod, &l.MatchStatus,
		); err != nil {
			return export.DraftExportInput{}, apperr.Transient(op, "draft line scan failed", err)
		}
		d.Lines = append(d.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return export.DraftExportInput{}, apperr.Transient(op, "draft line iteration failed", err)
	}

	var doc *model.Document
	const docQuery = `
		SELECT id, org_id, inbound_message_id, storage_key, mime_type, file_name,
		       size_bytes, sha256, status, created_at
		FROM documents WHERE id = $1`
	var m model.Document
	err = s.pool.QueryRow(ctx, docQuery, d.DocumentID).Scan(
		&m.ID, &m.OrgID, &m.InboundMessageID, &m.StorageKey, &m.MimeType, &m.FileName,
		&m.SizeBytes, &m.SHA256, &m.Status, &m.CreatedAt,
	)
	if err == nil {
		doc = &m
	}

	var name string
	var erpNumber *string
	const custQuery = `SELECT name, erp_customer_number FROM customers WHERE id = $1`
	if d.CustomerID != nil {
		_ = s.pool.QueryRow(ctx, custQuery, *d.CustomerID).Scan(&name, &erpNumber)
	}

	return export.DraftExportInput{
		Draft:             &d,
		Document:          doc,
		CustomerName:      name,
		ErpCustomerNumber: erpNumber,
	}, nil
}
