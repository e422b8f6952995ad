package export

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/model"
)

// Dropzone is the narrow port a connector writes an export document
// into and polls for acks from. Filesystem and SFTP adapters both
// satisfy it; the pipeline never branches on which one it holds.
type Dropzone interface {
	// WriteAtomic writes data under name inside the outbound directory,
	// guaranteeing no partial file is ever visible to a concurrent
	// reader (write to a temp name, then rename).
	WriteAtomic(ctx context.Context, name string, data []byte) error
	// ListAcks lists file names currently present in the ack directory.
	ListAcks(ctx context.Context) ([]string, error)
	// ReadAck reads and returns the contents of an ack/error file.
	ReadAck(ctx context.Context, name string) ([]byte, error)
	// MoveAck relocates a processed ack file out of the ack directory
	// (to a processed/ or error/ subdirectory) so it is not reread.
	MoveAck(ctx context.Context, name string, processed bool) error
}

// IdempotencyCache is the §6 IdempotencyCachePort: a TTL-bounded
// set-if-absent used to make push retries safe.
type IdempotencyCache interface {
	// SetIfAbsent returns true if key was not already present and is
	// now recorded with the given ttl; false if it was already present.
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Store is the narrow slice of PersistencePort the export pipeline
// needs: reading export-ready drafts and recording ERPExport rows.
type Store interface {
	RecordExportAttempt(ctx context.Context, rec ExportRecord) error
	UpdateExportStatus(ctx context.Context, exportID string, status string, errMsg *string, erpOrderID *string) error
}

// ExportRecord is what the pipeline persists per push attempt.
type ExportRecord struct {
	ExportID     string
	DraftOrderID string
	Attempt      int
	FileName     string
	PushedAt     time.Time
}

// BlobReader abstracts the document blob fetch used to stamp
// source_document.sha256 onto the export wire document.
type BlobReader interface {
	Open(ctx context.Context, objectKey string) (io.ReadCloser, error)
}

// DraftSource resolves everything BuildDocument needs for one approved
// draft: the draft and its source document row, plus the customer
// fields the wire document's customer block carries. Implemented by
// the same Store that backs matching/orchestrator/retention.
type DraftSource interface {
	DraftForExport(ctx context.Context, org, draftID uuid.UUID) (DraftExportInput, error)
}

// DraftExportInput bundles the rows BuildDocument projects from.
type DraftExportInput struct {
	Draft             *model.DraftOrder
	Document          *model.Document
	CustomerName      string
	ErpCustomerNumber *string
}
