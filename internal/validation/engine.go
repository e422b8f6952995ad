// Package validation implements the C7 validation engine: the rule pass
// that classifies a draft's issues and computes the READY verdict.
// Hard invariants (missing customer/SKU, UoM compatibility, price
// tolerance, duplicate detection) are evaluated in Go; customer-specific
// overrides of issue severity run through an embedded OPA/rego policy
// so an org can retune its business rules without a code deploy —
// grounded on jordigilh-kubernaut's use of open-policy-agent/opa for
// exactly this "externalize the policy, keep the invariant in code"
// split.
package validation

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/open-policy-agent/opa/rego"

	"github.com/orderflow/orderflow/internal/model"
)

//go:embed policy.rego
var defaultPolicy string

// Engine evaluates validation rules for a draft.
type Engine struct {
	policyModule string
}

// New builds an Engine. orgPolicy, if non-empty, replaces the default
// rego module (an org-specific severity override document); an empty
// string keeps the built-in default (no overrides, no extra issues).
func New(orgPolicy string) *Engine {
	m := defaultPolicy
	if orgPolicy != "" {
		m = orgPolicy
	}
	return &Engine{policyModule: m}
}

// Input is everything the engine needs about a draft to evaluate it;
// deliberately flat so the function is pure and easy to call twice to
// check the idempotence property of §4.6.
type Input struct {
	HasCustomer          bool
	AmbiguousCustomer    bool
	Lines                []LineInput
	ExternalOrderNumber  *string
	DuplicateOrderWindow bool // precomputed by caller: true if a duplicate was found in the trailing window
	LLMLineCount         int
	HeuristicLineCount   int
	ExtractionWarnings   []string
}

type LineInput struct {
	LineNo          int
	InternalSKU     *string
	MatchStatus     model.MatchStatus
	MatchConfidence float64
	HasPrice        bool
	PriceDeltaPct   float64 // 0 if no tier/no price
	HasPriceTier    bool
	UoMCompatible   bool
}

// Evaluate runs the full rule pass and returns the issue list plus the
// READY verdict (§4.6).
func (e *Engine) Evaluate(ctx context.Context, in Input) ([]model.ValidationIssue, bool, error) {
	var issues []model.ValidationIssue

	if !in.HasCustomer {
		issues = append(issues, model.ValidationIssue{Kind: model.IssueMissingCustomer, Severity: model.SeverityError})
	}
	if in.AmbiguousCustomer {
		issues = append(issues, model.ValidationIssue{Kind: model.IssueAmbiguousCustomer, Severity: model.SeverityError})
	}
	if in.DuplicateOrderWindow && in.ExternalOrderNumber != nil {
		issues = append(issues, model.ValidationIssue{Kind: model.IssueDuplicateOrder, Severity: model.SeverityWarning,
			Details: map[string]any{"external_order_number": *in.ExternalOrderNumber}})
	}
	if in.LLMLineCount > 0 && in.HeuristicLineCount > 0 {
		if in.LLMLineCount > in.HeuristicLineCount*2 || in.LLMLineCount > 500 {
			issues = append(issues, model.ValidationIssue{Kind: model.IssueLineCountMismatch, Severity: model.SeverityWarning,
				Details: map[string]any{"llm_line_count": in.LLMLineCount, "heuristic_line_count": in.HeuristicLineCount}})
		}
	}
	for _, w := range in.ExtractionWarnings {
		issues = append(issues, model.ValidationIssue{Kind: model.IssueExtractionWarnings, Severity: model.SeverityWarning,
			Details: map[string]any{"warning": w}})
	}

	for _, l := range in.Lines {
		lineNo := l.LineNo
		if l.InternalSKU == nil {
			issues = append(issues, model.ValidationIssue{Kind: model.IssueMissingSKU, Severity: model.SeverityError, LineNo: &lineNo})
			continue
		}
		if !l.UoMCompatible {
			issues = append(issues, model.ValidationIssue{Kind: model.IssueUoMIncompatible, Severity: model.SeverityError, LineNo: &lineNo})
		}
		if l.MatchConfidence < 0.75 {
			issues = append(issues, model.ValidationIssue{Kind: model.IssueLowConfidenceMatch, Severity: model.SeverityWarning, LineNo: &lineNo,
				Details: map[string]any{"confidence": l.MatchConfidence}})
		}
		if !l.HasPrice {
			issues = append(issues, model.ValidationIssue{Kind: model.IssueMissingPrice, Severity: model.SeverityWarning, LineNo: &lineNo})
		} else if l.HasPriceTier && l.PriceDeltaPct > 0 {
			sev := model.SeverityWarning
			if l.PriceDeltaPct > 10 {
				sev = model.SeverityError
			}
			issues = append(issues, model.ValidationIssue{Kind: model.IssuePriceMismatch, Severity: sev, LineNo: &lineNo,
				Details: map[string]any{"delta_pct": l.PriceDeltaPct}})
		}
	}

	issues, err := e.applyPolicy(ctx, issues)
	if err != nil {
		return nil, false, fmt.Errorf("validation.Evaluate: policy evaluation failed: %w", err)
	}

	ready := in.HasCustomer && !in.AmbiguousCustomer
	for _, l := range in.Lines {
		if l.InternalSKU == nil {
			ready = false
			break
		}
		if l.MatchStatus != model.MatchMatched && l.MatchStatus != model.MatchSuggested && l.MatchStatus != model.MatchOverridden {
			ready = false
			break
		}
	}
	for _, iss := range issues {
		if iss.Severity == model.SeverityError {
			ready = false
			break
		}
	}

	return issues, ready, nil
}

// applyPolicy overrides issue severities per the org's rego policy
// document (severity[kind] = "WARNING"|"ERROR").
func (e *Engine) applyPolicy(ctx context.Context, issues []model.ValidationIssue) ([]model.ValidationIssue, error) {
	r := rego.New(
		rego.Query("data.orderflow.validation.severity"),
		rego.Module("policy.rego", e.policyModule),
	)
	pq, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	rs, err := pq.Eval(ctx)
	if err != nil {
		return nil, err
	}
	overrides := map[string]string{}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if m, ok := rs[0].Expressions[0].Value.(map[string]any); ok {
			for k, v := range m {
				if s, ok := v.(string); ok {
					overrides[k] = s
				}
			}
		}
	}
	for i := range issues {
		if sev, ok := overrides[string(issues[i].Kind)]; ok {
			issues[i].Severity = model.IssueSeverity(sev)
		}
	}
	return issues, nil
}

// DuplicateWindow is the trailing window for DUPLICATE_ORDER detection
// per §4.6. Callers precompute DuplicateOrderWindow against this.
const DuplicateWindow = 30 * 24 * time.Hour
