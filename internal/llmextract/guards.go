package llmextract

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/orderflow/orderflow/internal/model"
)

// Guards are mandatory: a line or order that fails one is discarded by
// the caller and reported as an extraction error, never silently
// degraded to a warning.

// AnchorGuard reports whether a non-empty raw SKU is actually present
// in the source document, defeating the most common hallucination
// failure mode: the model inventing a SKU that was never in the input.
// A null customer_sku_raw has nothing to anchor and passes.
func AnchorGuard(sourceText, customerSKURaw string) bool {
	if customerSKURaw == "" {
		return true
	}
	return strings.Contains(strings.ToLower(sourceText), strings.ToLower(customerSKURaw))
}

// RangeGuard rejects implausible quantities and prices a hallucinating
// model sometimes fills in as placeholders (0, or absurdly large).
func RangeGuard(qty, unitPrice decimal.Decimal) bool {
	if qty.Sign() <= 0 || qty.GreaterThan(decimal.NewFromInt(1_000_000)) {
		return false
	}
	if unitPrice.Sign() < 0 || unitPrice.GreaterThan(decimal.NewFromInt(10_000_000)) {
		return false
	}
	return true
}

// LineCountGuard flags a gross mismatch between the LLM's line count
// and an independent heuristic count (e.g. non-blank candidate table
// rows), the same signal validation.Input.LLMLineCount/HeuristicLineCount
// feeds into IssueLineCountMismatch.
func LineCountGuard(llmCount, heuristicCount int) (bool, string) {
	if heuristicCount == 0 {
		return true, ""
	}
	if llmCount > heuristicCount*2 || llmCount > 500 {
		return false, fmt.Sprintf("llm returned %d lines against a heuristic count of %d", llmCount, heuristicCount)
	}
	return true, ""
}

// UoMGuard reports whether a raw unit-of-measure token resolves to a
// canonical UoM, either directly or through the bilingual synonym
// table, and returns the resolved value.
func UoMGuard(raw string) (model.UoM, bool) {
	u := model.UoM(strings.ToUpper(strings.TrimSpace(raw)))
	if model.IsCanonical(u) {
		return u, true
	}
	if canon, ok := model.UoMSynonyms[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return canon, true
	}
	return "", false
}
