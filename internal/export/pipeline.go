package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/orderflow/orderflow/internal/apperr"
	"github.com/orderflow/orderflow/internal/metrics"
)

// Pipeline pushes approved drafts to a dropzone idempotently, tripping
// a circuit breaker around the dropzone call the same way the matching
// engine's provider client trips one around the LLM call — a flaky
// SFTP endpoint must not be hammered by every retrying push.
type Pipeline struct {
	Dropzone Dropzone
	Cache    IdempotencyCache
	Store    Store
	breaker  *gobreaker.CircuitBreaker
}

// NewPipeline builds a Pipeline with a breaker tuned to trip after 5
// consecutive dropzone failures and probe again after 30s.
func NewPipeline(dz Dropzone, cache IdempotencyCache, store Store) *Pipeline {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "export-dropzone",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Pipeline{Dropzone: dz, Cache: cache, Store: store, breaker: cb}
}

// Push writes doc to the dropzone exactly once per idempotency key
// (org_slug + draft_order_id). Each call makes one write; attempt is
// recorded on the export record and decides the failure kind: Transient
// until attempt+1 reaches MaxAttempts, Fatal after. Push neither waits
// nor schedules a retry, and does not call NextDelay. A second Push call for an
// already-pushed draft within the cache TTL is a no-op success, so a
// crashed worker can safely re-drive the same push.
func (p *Pipeline) Push(ctx context.Context, doc Document, attempt int, ttl time.Duration) error {
	const op = "export.Push"
	key := idempotencyKey(doc.OrgSlug, doc.DraftOrderID)

	fresh, err := p.Cache.SetIfAbsent(ctx, key, ttl)
	if err != nil {
		return apperr.Transient(op, "idempotency cache unavailable", err)
	}
	if !fresh {
		return nil
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		_ = p.Cache.Delete(ctx, key)
		return apperr.Fatal(op, "marshal export document", err)
	}
	name := fileName(doc)

	_, err = p.breaker.Execute(func() (any, error) {
		return nil, p.Dropzone.WriteAtomic(ctx, name, body)
	})
	if err != nil {
		_ = p.Cache.Delete(ctx, key)
		recErr := p.Store.RecordExportAttempt(ctx, ExportRecord{
			ExportID: key, DraftOrderID: doc.DraftOrderID.String(), Attempt: attempt,
			FileName: name, PushedAt: time.Now(),
		})
		metrics.ExportAttemptsTotal.WithLabelValues(doc.OrgSlug, "write_failed").Inc()
		if recErr != nil {
			return apperr.Transient(op, "record export attempt", recErr)
		}
		if attempt+1 >= MaxAttempts {
			return apperr.Fatal(op, fmt.Sprintf("dropzone write failed after %d attempts", attempt+1), err)
		}
		return apperr.Transient(op, "dropzone write failed, will retry", err)
	}

	metrics.ExportAttemptsTotal.WithLabelValues(doc.OrgSlug, "written").Inc()
	return p.Store.RecordExportAttempt(ctx, ExportRecord{
		ExportID: key, DraftOrderID: doc.DraftOrderID.String(), Attempt: attempt,
		FileName: name, PushedAt: time.Now(),
	})
}

func idempotencyKey(orgSlug string, draftID uuid.UUID) string {
	return "export:" + orgSlug + ":" + draftID.String()
}

func fileName(doc Document) string {
	return fmt.Sprintf("order_%s_%s.json", doc.OrgSlug, doc.DraftOrderID.String())
}

// Sha256Hex is a small helper so callers stamping source_document.sha256
// onto a Document don't each reimplement the hex encoding.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
