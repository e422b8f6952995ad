// Package export implements the C9 export pipeline: the canonical
// export JSON wire format, atomic dropzone writes, idempotent push, and
// ack-file reconciliation.
package export

import (
	"time"

	"github.com/google/uuid"
)

// Document is the §6 canonical export JSON (v1), bit-exact. Every
// nullable field is a pointer with no `omitempty` tag so JSON encoding
// always emits it — "presence not omission" per the wire contract.
type Document struct {
	ExportVersion string       `json:"export_version"`
	OrgSlug       string       `json:"org_slug"`
	DraftOrderID  uuid.UUID    `json:"draft_order_id"`
	ApprovedAt    time.Time    `json:"approved_at"`
	Customer      Customer     `json:"customer"`
	Header        Header       `json:"header"`
	Lines         []Line       `json:"lines"`
	Meta          Meta         `json:"meta"`
}

const ExportVersionV1 = "orderflow_export_json_v1"

type Customer struct {
	ID                uuid.UUID `json:"id"`
	ErpCustomerNumber *string   `json:"erp_customer_number"`
	Name              string    `json:"name"`
}

type Header struct {
	ExternalOrderNumber   *string `json:"external_order_number"`
	OrderDate             *string `json:"order_date"` // YYYY-MM-DD
	Currency              string  `json:"currency"`
	RequestedDeliveryDate *string `json:"requested_delivery_date"`
	Notes                 *string `json:"notes"`
}

type Line struct {
	LineNo         int      `json:"line_no"`
	InternalSKU    string   `json:"internal_sku"`
	Qty            float64  `json:"qty"`
	UoM            string   `json:"uom"`
	UnitPrice      *float64 `json:"unit_price"`
	Currency       string   `json:"currency"`
	CustomerSKURaw *string  `json:"customer_sku_raw"`
	Description    *string  `json:"description"`
}

type Meta struct {
	CreatedBy      string          `json:"created_by"`
	SourceDocument *SourceDocument `json:"source_document"`
}

type SourceDocument struct {
	DocumentID uuid.UUID `json:"document_id"`
	FileName   string    `json:"file_name"`
	SHA256     string    `json:"sha256"`
}

// AckFile is the §6 ack/error file contract.
type AckFile struct {
	Status      string  `json:"status"` // ACKED | FAILED
	ErpOrderID  *string `json:"erp_order_id,omitempty"`
	ErrorCode   *string `json:"error_code,omitempty"`
	Message     *string `json:"message,omitempty"`
	ProcessedAt string  `json:"processed_at"`
}
