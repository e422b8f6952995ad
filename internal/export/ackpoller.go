package export

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/orderflow/orderflow/internal/metrics"
)

// AckStore is the slice of Store an ack reconciliation pass needs: it
// maps an ack file name back to the export it acknowledges and records
// the outcome.
type AckStore interface {
	ResolveExportID(ctx context.Context, fileName string) (exportID string, ok bool)
	UpdateExportStatus(ctx context.Context, exportID string, status string, errMsg *string, erpOrderID *string) error
	// ExportPushedAt returns the org slug and push timestamp recorded for
	// exportID, so the reconciler can report ack turnaround latency.
	ExportPushedAt(ctx context.Context, exportID string) (orgSlug string, pushedAt time.Time, ok bool)
}

// Reconciler polls a dropzone's ack directory and applies each
// ack_*.json/error_*.json file to the matching export record.
type Reconciler struct {
	Dropzone Dropzone
	Store    AckStore
}

// Poll scans the ack directory once, applying every file found and
// moving it to the processed or error subdirectory so a later Poll
// never reprocesses it.
func (r *Reconciler) Poll(ctx context.Context) (int, error) {
	names, err := r.Dropzone.ListAcks(ctx)
	if err != nil {
		return 0, fmt.Errorf("export.Reconciler: list acks: %w", err)
	}
	applied := 0
	for _, name := range names {
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		if err := r.applyOne(ctx, name); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func (r *Reconciler) applyOne(ctx context.Context, name string) error {
	raw, err := r.Dropzone.ReadAck(ctx, name)
	if err != nil {
		return fmt.Errorf("export.Reconciler: read %s: %w", name, err)
	}
	var ack AckFile
	if err := json.Unmarshal(raw, &ack); err != nil {
		return r.Dropzone.MoveAck(ctx, name, false)
	}

	exportID, ok := r.Store.ResolveExportID(ctx, name)
	if !ok {
		return r.Dropzone.MoveAck(ctx, name, false)
	}

	status := "ACKED"
	var errMsg *string
	if ack.Status != "ACKED" {
		status = "FAILED"
		errMsg = ack.Message
	}
	if err := r.Store.UpdateExportStatus(ctx, exportID, status, errMsg, ack.ErpOrderID); err != nil {
		return fmt.Errorf("export.Reconciler: update status for %s: %w", exportID, err)
	}

	orgSlug, pushedAt, ok := r.Store.ExportPushedAt(ctx, exportID)
	if ok {
		metrics.ExportAckLatencySeconds.WithLabelValues(orgSlug).Observe(time.Since(pushedAt).Seconds())
	} else {
		orgSlug = "unknown"
	}
	metrics.ExportAttemptsTotal.WithLabelValues(orgSlug, strings.ToLower(status)).Inc()

	// A FAILED ack is still a validly-processed file, not a malformed one;
	// error/ is reserved for JSON the reconciler couldn't parse or resolve
	// to an export.
	return r.Dropzone.MoveAck(ctx, name, true)
}
