// Package orchestrator implements the C5 extraction orchestrator: the
// rule-first/LLM-fallback decision, AICallLog-based dedup, and the
// daily AI budget gate, consolidating what the distilled spec listed
// as two parallel extractor registries into one.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/apperr"
	"github.com/orderflow/orderflow/internal/llmextract"
	"github.com/orderflow/orderflow/internal/metrics"
	"github.com/orderflow/orderflow/internal/model"
)

// MimeClass is the coarse document shape used to pick a rule extractor.
type MimeClass string

const (
	MimeCSV     MimeClass = "csv"
	MimeXLSX    MimeClass = "xlsx"
	MimePDFText MimeClass = "pdftext"
)

// RuleExtractorFunc runs one rule-based extractor over a document's
// bytes (CSV/XLSX) or extracted text (PDF).
type RuleExtractorFunc func(input []byte) (model.CanonicalOrder, error)

// RuleConfidenceThreshold is the §4.4 step 3(b) cutover point: a rule
// result below this overall confidence triggers the LLM fallback rather
// than being accepted as-is.
const RuleConfidenceThreshold = 0.60

// BudgetPort is the narrow persistence slice the orchestrator needs for
// AICallLog dedup and the daily spend gate (§4.4).
type BudgetPort interface {
	TodaySpendMicros(ctx context.Context, orgID uuid.UUID) (int64, error)
	FindByInputHash(ctx context.Context, orgID uuid.UUID, inputHash string) (*model.AICallLog, bool, error)
	RecordCall(ctx context.Context, log model.AICallLog) error
}

// Orchestrator runs the extraction decision tree for one document.
type Orchestrator struct {
	Rules  map[MimeClass]RuleExtractorFunc
	LLM    *llmextract.Extractor
	Budget BudgetPort
}

// Outcome is what Run reports back to the caller persisting the
// ExtractionRun.
type Outcome struct {
	Order        model.CanonicalOrder
	UsedLLM      bool
	BudgetBlocked bool
	Deduped      bool
}

// Run executes the rule extractor for class, falling back to the LLM
// extractor when the rule result's confidence is too low, subject to
// the org's daily AI budget and AICallLog-keyed dedup: when the latest
// call logged for the same input hash (the stores look back 7 days)
// succeeded, Run returns the rule result flagged Deduped and makes no
// LLM call. The earlier call's output is not read back.
func (o *Orchestrator) Run(ctx context.Context, orgID uuid.UUID, class MimeClass, input []byte, text string, hints []llmextract.FewShotExample, heuristicLineCount int, dailyBudgetMicros int64) (Outcome, error) {
	const op = "orchestrator.Run"

	rule, ok := o.Rules[class]
	if !ok {
		return Outcome{}, apperr.Fatal(op, fmt.Sprintf("no rule extractor registered for %s", class), nil)
	}
	ruleOrder, err := rule(input)
	if err == nil && ruleOrder.Confidence.Overall >= RuleConfidenceThreshold {
		return Outcome{Order: ruleOrder}, nil
	}

	if o.LLM == nil {
		if err != nil {
			return Outcome{}, apperr.Validation(op, "document", "rule extraction failed and no LLM fallback is configured")
		}
		return Outcome{Order: ruleOrder}, nil
	}

	inputHash := hashInput(text)
	if prior, found, findErr := o.Budget.FindByInputHash(ctx, orgID, inputHash); findErr == nil && found && prior.Status == model.AICallSucceeded {
		return Outcome{Order: ruleOrder, Deduped: true}, nil
	}

	spent, spendErr := o.Budget.TodaySpendMicros(ctx, orgID)
	if spendErr == nil && dailyBudgetMicros > 0 && spent >= dailyBudgetMicros {
		if err != nil {
			ruleOrder.Warnings = append(ruleOrder.Warnings, "AI_BUDGET_EXHAUSTED: rule extraction result returned as-is")
		}
		metrics.AIBudgetBlockedTotal.WithLabelValues(orgID.String()).Inc()
		return Outcome{Order: ruleOrder, BudgetBlocked: true}, nil
	}

	start := time.Now()
	llmRes, llmErr := o.LLM.Extract(ctx, text, hints, heuristicLineCount)
	logEntry := model.AICallLog{
		OrgID: orgID, ID: uuid.New(), CallType: "extract_text", Provider: "openai",
		InputHash: &inputHash, CreatedAt: time.Now(), LatencyMS: time.Since(start).Milliseconds(),
	}
	if llmErr != nil {
		logEntry.Status = model.AICallFailed
		_ = o.Budget.RecordCall(ctx, logEntry)
		metrics.AICallsTotal.WithLabelValues(orgID.String(), logEntry.CallType, "failed").Inc()
		if err != nil {
			return Outcome{}, apperr.Transient(op, "both rule and LLM extraction failed", llmErr)
		}
		return Outcome{Order: ruleOrder}, nil
	}

	logEntry.Status = model.AICallSucceeded
	logEntry.InputTokens = llmRes.InputTokens
	logEntry.OutputTokens = llmRes.OutputTokens
	logEntry.CostMicros = llmRes.CostMicros
	metrics.AICallsTotal.WithLabelValues(orgID.String(), logEntry.CallType, "succeeded").Inc()
	metrics.AICostMicrosTotal.WithLabelValues(orgID.String()).Add(float64(llmRes.CostMicros))
	if recErr := o.Budget.RecordCall(ctx, logEntry); recErr != nil {
		return Outcome{}, apperr.Transient(op, "failed to record AI call log", recErr)
	}

	return Outcome{Order: llmRes.Order, UsedLLM: true}, nil
}

func hashInput(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
