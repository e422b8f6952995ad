package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/orderflow/orderflow/internal/apperr"
	"github.com/orderflow/orderflow/internal/model"
	"github.com/orderflow/orderflow/internal/orchestrator"
)

var _ orchestrator.BudgetPort = (*Store)(nil)

// TodaySpendMicros aggregates ai_call_logs.cost_micros for org over the
// current UTC day, used by the orchestrator's daily budget gate.
func (s *Store) TodaySpendMicros(ctx context.Context, orgID uuid.UUID) (int64, error) {
	const op = "postgres.TodaySpendMicros"
	const query = `
		SELECT COALESCE(SUM(cost_micros), 0)
		FROM ai_call_logs
		WHERE org_id = $1 AND created_at >= date_trunc('day', now() AT TIME ZONE 'utc') AT TIME ZONE 'utc'`

	var total int64
	if err := s.pool.QueryRow(ctx, query, orgID).Scan(&total); err != nil {
		return 0, apperr.Transient(op, "budget spend aggregation failed", err)
	}
	return total, nil
}

// FindByInputHash looks up the most recent AI call log recorded against
// inputHash in the last 7 days, the orchestrator's dedup key for "this
// exact raw-text extraction already ran recently".
func (s *Store) FindByInputHash(ctx context.Context, orgID uuid.UUID, inputHash string) (*model.AICallLog, bool, error) {
	const op = "postgres.FindByInputHash"
	const query = `
		SELECT org_id, id, document_id, call_type, provider, model,
		       input_tokens, output_tokens, latency_ms, cost_micros, status, input_hash, created_at
		FROM ai_call_logs
		WHERE org_id = $1 AND input_hash = $2
		  AND created_at >= now() - interval '7 days'
		ORDER BY created_at DESC
		LIMIT 1`

	var l model.AICallLog
	err := s.pool.QueryRow(ctx, query, orgID, inputHash).Scan(
		&l.OrgID, &l.ID, &l.DocumentID, &l.CallType, &l.Provider, &l.Model,
		&l.InputTokens, &l.OutputTokens, &l.LatencyMS, &l.CostMicros, &l.Status, &l.InputHash, &l.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperr.Transient(op, "ai call log lookup by input hash failed", err)
	}
	return &l, true, nil
}

// RecordCall inserts the AICallLog row the orchestrator writes after
// every LLM round trip, win or lose, so cost attribution and the dedup
// index both stay current.
func (s *Store) RecordCall(ctx context.Context, log model.AICallLog) error {
	const op = "postgres.RecordCall"
	const query = `
		INSERT INTO ai_call_logs
			(org_id, id, document_id, call_type, provider, model,
			 input_tokens, output_tokens, latency_ms, cost_micros, status, input_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.pool.Exec(ctx, query,
		log.OrgID, log.ID, log.DocumentID, log.CallType, log.Provider, log.Model,
		log.InputTokens, log.OutputTokens, log.LatencyMS, log.CostMicros, log.Status, log.InputHash, log.CreatedAt,
	)
	if err != nil {
		return apperr.Transient(op, "ai call log insert failed", err)
	}
	return nil
}
