package retention

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/apperr"
	"github.com/orderflow/orderflow/internal/metrics"
)

// BatchSize is the §4.11 per-row batch bound: a run deletes at most
// this many rows per Store call, looping until a batch returns fewer
// rows than BatchSize, so one run never holds a table lock over an
// unbounded delete.
const BatchSize = 1000

// Job runs the retention sweep. RunOnce takes "now" as a parameter, so
// tests (and a scheduler) control the cutoffs without the job reaching
// for time.Now() itself mid-run.
type Job struct {
	Store Store
}

// Report summarizes one RunOnce invocation across every org it swept.
type Report struct {
	OrgsSwept           int
	DocumentsSoftDeleted int
	AICallLogsHardDeleted int
}

// RunOnce sweeps every org once: soft-deletes aged-out Documents and
// hard-deletes aged-out AICallLogs, batching each until a batch
// returns fewer rows than BatchSize. Run twice against an unchanged
// corpus is idempotent by construction — the second run's cutoff
// query matches nothing already deleted.
func (j *Job) RunOnce(ctx context.Context, now time.Time) (Report, error) {
	const op = "retention.RunOnce"
	orgs, err := j.Store.OrgIDs(ctx)
	if err != nil {
		return Report{}, apperr.Transient(op, "org enumeration failed", err)
	}

	var report Report
	for _, org := range orgs {
		rawDays, aiDays, err := j.Store.RetentionDays(ctx, org)
		if err != nil {
			return report, apperr.Transient(op, "retention policy lookup failed", err)
		}

		docsDeleted, err := j.sweepDocuments(ctx, org, now.AddDate(0, 0, -rawDays))
		if err != nil {
			return report, err
		}
		logsDeleted, err := j.sweepAICallLogs(ctx, org, now.AddDate(0, 0, -aiDays))
		if err != nil {
			return report, err
		}

		report.OrgsSwept++
		report.DocumentsSoftDeleted += docsDeleted
		report.AICallLogsHardDeleted += logsDeleted
	}
	return report, nil
}

func (j *Job) sweepDocuments(ctx context.Context, org uuid.UUID, olderThan time.Time) (int, error) {
	const op = "retention.sweepDocuments"
	total := 0
	for {
		n, err := j.Store.SoftDeleteDocuments(ctx, org, olderThan, BatchSize)
		if err != nil {
			return total, apperr.Transient(op, "document soft-delete batch failed", err)
		}
		total += n
		if n < BatchSize {
			if n > 0 {
				metrics.RetentionRowsDeletedTotal.WithLabelValues(org.String(), "documents").Add(float64(n))
			}
			return total, nil
		}
		metrics.RetentionRowsDeletedTotal.WithLabelValues(org.String(), "documents").Add(float64(n))
	}
}

func (j *Job) sweepAICallLogs(ctx context.Context, org uuid.UUID, olderThan time.Time) (int, error) {
	const op = "retention.sweepAICallLogs"
	total := 0
	for {
		n, err := j.Store.HardDeleteAICallLogs(ctx, org, olderThan, BatchSize)
		if err != nil {
			return total, apperr.Transient(op, "ai call log hard-delete batch failed", err)
		}
		total += n
		if n < BatchSize {
			if n > 0 {
				metrics.RetentionRowsDeletedTotal.WithLabelValues(org.String(), "ai_call_logs").Add(float64(n))
			}
			return total, nil
		}
		metrics.RetentionRowsDeletedTotal.WithLabelValues(org.String(), "ai_call_logs").Add(float64(n))
	}
}
