package orchestrator_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/orderflow/internal/llmextract"
	"github.com/orderflow/orderflow/internal/model"
	"github.com/orderflow/orderflow/internal/orchestrator"
	"github.com/orderflow/orderflow/internal/provider"
)

type fakeBudget struct {
	spent   int64
	logs    []model.AICallLog
	byHash  map[string]model.AICallLog
}

func newFakeBudget() *fakeBudget { return &fakeBudget{byHash: map[string]model.AICallLog{}} }

func (b *fakeBudget) TodaySpendMicros(ctx context.Context, orgID uuid.UUID) (int64, error) {
	return b.spent, nil
}

func (b *fakeBudget) FindByInputHash(ctx context.Context, orgID uuid.UUID, inputHash string) (*model.AICallLog, bool, error) {
	if l, ok := b.byHash[inputHash]; ok {
		return &l, true, nil
	}
	return nil, false, nil
}

func (b *fakeBudget) RecordCall(ctx context.Context, log model.AICallLog) error {
	b.logs = append(b.logs, log)
	return nil
}

type scriptedLLM struct{ resp string }

func (s *scriptedLLM) Chat(ctx context.Context, req provider.ChatRequest) (provider.ChatResult, error) {
	return provider.ChatResult{Text: s.resp}, nil
}

const validLLMResponse = `{
  "order": {"external_order_number": "1", "order_date": null, "currency": "EUR", "customer_hint": null, "requested_delivery_date": null, "ship_to": null},
  "lines": [{"line_no": 1, "customer_sku_raw": "ABC-1", "product_description": "ABC-1 widget from source", "qty": 1, "uom": "ST", "unit_price": 1, "currency": "EUR"}]
}`

func highConfidenceRule(input []byte) (model.CanonicalOrder, error) {
	return model.CanonicalOrder{Confidence: model.ConfidenceSummary{Overall: 0.95}, Lines: []model.CanonicalLine{{LineNo: 1}}}, nil
}

func lowConfidenceRule(input []byte) (model.CanonicalOrder, error) {
	return model.CanonicalOrder{Confidence: model.ConfidenceSummary{Overall: 0.10}, Lines: []model.CanonicalLine{{LineNo: 1}}}, nil
}

func TestRun_AcceptsHighConfidenceRuleResult(t *testing.T) {
	o := &orchestrator.Orchestrator{
		Rules:  map[orchestrator.MimeClass]orchestrator.RuleExtractorFunc{orchestrator.MimeCSV: highConfidenceRule},
		Budget: newFakeBudget(),
	}
	out, err := o.Run(context.Background(), uuid.New(), orchestrator.MimeCSV, []byte("x"), "x", nil, 1, 1_000_000)
	require.NoError(t, err)
	assert.False(t, out.UsedLLM)
	assert.InDelta(t, 0.95, out.Order.Confidence.Overall, 0.001)
}

func TestRun_FallsBackToLLMOnLowConfidence(t *testing.T) {
	budget := newFakeBudget()
	o := &orchestrator.Orchestrator{
		Rules:  map[orchestrator.MimeClass]orchestrator.RuleExtractorFunc{orchestrator.MimeCSV: lowConfidenceRule},
		LLM:    &llmextract.Extractor{LLM: &scriptedLLM{resp: validLLMResponse}},
		Budget: budget,
	}
	out, err := o.Run(context.Background(), uuid.New(), orchestrator.MimeCSV, []byte("x"), "ABC-1 widget from source", nil, 1, 1_000_000)
	require.NoError(t, err)
	assert.True(t, out.UsedLLM)
	require.Len(t, budget.logs, 1)
	assert.Equal(t, model.AICallSucceeded, budget.logs[0].Status)
}

func TestRun_BudgetExhaustedReturnsRuleResult(t *testing.T) {
	budget := newFakeBudget()
	budget.spent = 2_000_000
	o := &orchestrator.Orchestrator{
		Rules:  map[orchestrator.MimeClass]orchestrator.RuleExtractorFunc{orchestrator.MimeCSV: lowConfidenceRule},
		LLM:    &llmextract.Extractor{LLM: &scriptedLLM{resp: validLLMResponse}},
		Budget: budget,
	}
	out, err := o.Run(context.Background(), uuid.New(), orchestrator.MimeCSV, []byte("x"), "ABC-1 widget from source", nil, 1, 1_000_000)
	require.NoError(t, err)
	assert.True(t, out.BudgetBlocked)
	assert.False(t, out.UsedLLM)
	assert.Empty(t, budget.logs)
}

func TestRun_ZeroBudgetMeansUnlimited(t *testing.T) {
	budget := newFakeBudget()
	budget.spent = 2_000_000
	o := &orchestrator.Orchestrator{
		Rules:  map[orchestrator.MimeClass]orchestrator.RuleExtractorFunc{orchestrator.MimeCSV: lowConfidenceRule},
		LLM:    &llmextract.Extractor{LLM: &scriptedLLM{resp: validLLMResponse}},
		Budget: budget,
	}
	out, err := o.Run(context.Background(), uuid.New(), orchestrator.MimeCSV, []byte("x"), "ABC-1 widget from source", nil, 1, 0)
	require.NoError(t, err)
	assert.False(t, out.BudgetBlocked)
	assert.True(t, out.UsedLLM)
}

func TestRun_DedupSkipsSecondLLMCall(t *testing.T) {
	budget := newFakeBudget()
	budget.byHash[hashForTest("ABC-1 widget from source")] = model.AICallLog{Status: model.AICallSucceeded}
	o := &orchestrator.Orchestrator{
		Rules:  map[orchestrator.MimeClass]orchestrator.RuleExtractorFunc{orchestrator.MimeCSV: lowConfidenceRule},
		LLM:    &llmextract.Extractor{LLM: &scriptedLLM{resp: validLLMResponse}},
		Budget: budget,
	}
	out, err := o.Run(context.Background(), uuid.New(), orchestrator.MimeCSV, []byte("x"), "ABC-1 widget from source", nil, 1, 1_000_000)
	require.NoError(t, err)
	assert.True(t, out.Deduped)
	assert.False(t, out.UsedLLM)
}

func hashForTest(s string) string {
	// mirrors orchestrator's unexported hashInput so the dedup test can
	// pre-seed the same key without exporting internal hashing.
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
