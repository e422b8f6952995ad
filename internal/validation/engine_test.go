package validation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/orderflow/internal/model"
	"github.com/orderflow/orderflow/internal/validation"
)

func sku(s string) *string { return &s }

func TestEvaluate_ReadyWhenAllMatched(t *testing.T) {
	eng := validation.New("")
	issues, ready, err := eng.Evaluate(context.Background(), validation.Input{
		HasCustomer: true,
		Lines: []validation.LineInput{
			{LineNo: 1, InternalSKU: sku("P1"), MatchStatus: model.MatchMatched, MatchConfidence: 0.99, HasPrice: true, UoMCompatible: true},
		},
	})
	require.NoError(t, err)
	assert.True(t, ready)
	assert.Empty(t, issuesBySeverity(issues, model.SeverityError))
}

func TestEvaluate_MissingCustomerBlocksReady(t *testing.T) {
	eng := validation.New("")
	issues, ready, err := eng.Evaluate(context.Background(), validation.Input{HasCustomer: false})
	require.NoError(t, err)
	assert.False(t, ready)
	require.Len(t, issues, 1)
	assert.Equal(t, model.IssueMissingCustomer, issues[0].Kind)
}

func TestEvaluate_MissingSKUBlocksReady(t *testing.T) {
	eng := validation.New("")
	issues, ready, err := eng.Evaluate(context.Background(), validation.Input{
		HasCustomer: true,
		Lines:       []validation.LineInput{{LineNo: 1, InternalSKU: nil}},
	})
	require.NoError(t, err)
	assert.False(t, ready)
	assert.Contains(t, kinds(issues), model.IssueMissingSKU)
}

func TestEvaluate_WarningsDoNotBlockReady(t *testing.T) {
	eng := validation.New("")
	issues, ready, err := eng.Evaluate(context.Background(), validation.Input{
		HasCustomer: true,
		Lines: []validation.LineInput{
			{LineNo: 1, InternalSKU: sku("P1"), MatchStatus: model.MatchSuggested, MatchConfidence: 0.60, HasPrice: true, UoMCompatible: true},
		},
	})
	require.NoError(t, err)
	assert.True(t, ready)
	assert.Contains(t, kinds(issues), model.IssueLowConfidenceMatch)
}

func TestEvaluate_Idempotent(t *testing.T) {
	eng := validation.New("")
	in := validation.Input{
		HasCustomer: true,
		Lines: []validation.LineInput{
			{LineNo: 1, InternalSKU: sku("P1"), MatchStatus: model.MatchMatched, MatchConfidence: 0.40, HasPrice: true, UoMCompatible: true},
		},
	}
	i1, r1, err := eng.Evaluate(context.Background(), in)
	require.NoError(t, err)
	i2, r2, err := eng.Evaluate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
	assert.Equal(t, kinds(i1), kinds(i2))
}

func TestEvaluate_PolicyOverridesSeverity(t *testing.T) {
	policy := `package orderflow.validation
severity := {"LOW_CONFIDENCE_MATCH": "ERROR"}
extra_issues := []`
	eng := validation.New(policy)
	_, ready, err := eng.Evaluate(context.Background(), validation.Input{
		HasCustomer: true,
		Lines: []validation.LineInput{
			{LineNo: 1, InternalSKU: sku("P1"), MatchStatus: model.MatchSuggested, MatchConfidence: 0.40, HasPrice: true, UoMCompatible: true},
		},
	})
	require.NoError(t, err)
	assert.False(t, ready, "policy escalated LOW_CONFIDENCE_MATCH to ERROR, draft must not be READY")
}

func TestEvaluate_DuplicateOrderWindow(t *testing.T) {
	eng := validation.New("")
	extOrder := "PO-9001"
	issues, ready, err := eng.Evaluate(context.Background(), validation.Input{
		HasCustomer:          true,
		ExternalOrderNumber:  &extOrder,
		DuplicateOrderWindow: true,
		Lines: []validation.LineInput{
			{LineNo: 1, InternalSKU: sku("P1"), MatchStatus: model.MatchMatched, MatchConfidence: 0.99, HasPrice: true, UoMCompatible: true},
		},
	})
	require.NoError(t, err)
	assert.True(t, ready, "DUPLICATE_ORDER is a warning, must not block ready")
	assert.Contains(t, kinds(issues), model.IssueDuplicateOrder)
}

func TestEvaluate_NoExternalOrderNumberSuppressesDuplicateIssue(t *testing.T) {
	eng := validation.New("")
	issues, _, err := eng.Evaluate(context.Background(), validation.Input{
		HasCustomer:          true,
		DuplicateOrderWindow: true,
	})
	require.NoError(t, err)
	assert.NotContains(t, kinds(issues), model.IssueDuplicateOrder)
}

func TestEvaluate_UoMIncompatibleBlocksReady(t *testing.T) {
	eng := validation.New("")
	issues, ready, err := eng.Evaluate(context.Background(), validation.Input{
		HasCustomer: true,
		Lines: []validation.LineInput{
			{LineNo: 1, InternalSKU: sku("P1"), MatchStatus: model.MatchMatched, MatchConfidence: 0.99, HasPrice: true, UoMCompatible: false},
		},
	})
	require.NoError(t, err)
	assert.False(t, ready)
	assert.Contains(t, kinds(issues), model.IssueUoMIncompatible)
}

func TestEvaluate_PriceMismatchSeverityScalesWithDelta(t *testing.T) {
	eng := validation.New("")
	issues, ready, err := eng.Evaluate(context.Background(), validation.Input{
		HasCustomer: true,
		Lines: []validation.LineInput{
			{LineNo: 1, InternalSKU: sku("P1"), MatchStatus: model.MatchMatched, MatchConfidence: 0.99, HasPrice: true, UoMCompatible: true, HasPriceTier: true, PriceDeltaPct: 15},
		},
	})
	require.NoError(t, err)
	assert.False(t, ready, "a >10%% price delta is an ERROR-severity PRICE_MISMATCH")
	require.Contains(t, kinds(issues), model.IssuePriceMismatch)
	for _, i := range issues {
		if i.Kind == model.IssuePriceMismatch {
			assert.Equal(t, model.SeverityError, i.Severity)
		}
	}
}

func TestEvaluate_SmallPriceDeltaIsWarningOnly(t *testing.T) {
	eng := validation.New("")
	issues, ready, err := eng.Evaluate(context.Background(), validation.Input{
		HasCustomer: true,
		Lines: []validation.LineInput{
			{LineNo: 1, InternalSKU: sku("P1"), MatchStatus: model.MatchMatched, MatchConfidence: 0.99, HasPrice: true, UoMCompatible: true, HasPriceTier: true, PriceDeltaPct: 3},
		},
	})
	require.NoError(t, err)
	assert.True(t, ready)
	require.Contains(t, kinds(issues), model.IssuePriceMismatch)
	for _, i := range issues {
		if i.Kind == model.IssuePriceMismatch {
			assert.Equal(t, model.SeverityWarning, i.Severity)
		}
	}
}

func TestEvaluate_LineCountGrossMismatch(t *testing.T) {
	eng := validation.New("")
	issues, _, err := eng.Evaluate(context.Background(), validation.Input{
		HasCustomer:        true,
		LLMLineCount:       10,
		HeuristicLineCount: 2,
	})
	require.NoError(t, err)
	assert.Contains(t, kinds(issues), model.IssueLineCountMismatch)
}

func TestEvaluate_ExtractionWarningsPropagated(t *testing.T) {
	eng := validation.New("")
	issues, ready, err := eng.Evaluate(context.Background(), validation.Input{
		HasCustomer:        true,
		ExtractionWarnings: []string{"AI_BUDGET_EXHAUSTED"},
	})
	require.NoError(t, err)
	assert.True(t, ready)
	assert.Contains(t, kinds(issues), model.IssueExtractionWarnings)
}

func kinds(issues []model.ValidationIssue) []model.IssueKind {
	out := make([]model.IssueKind, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Kind)
	}
	return out
}

func issuesBySeverity(issues []model.ValidationIssue, sev model.IssueSeverity) []model.ValidationIssue {
	var out []model.ValidationIssue
	for _, i := range issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}
