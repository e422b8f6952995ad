package orderflowlib

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/feedback"
	"github.com/orderflow/orderflow/internal/llmextract"
	"github.com/orderflow/orderflow/internal/matching"
	"github.com/orderflow/orderflow/internal/metrics"
	"github.com/orderflow/orderflow/internal/orchestrator"
	"github.com/orderflow/orderflow/internal/validation"
)

// DuplicateCheckPort is the narrow port Ingest uses to populate
// validation.Input.DuplicateOrderWindow: whether another draft for the
// same org and external order number already exists within the
// trailing validation.DuplicateWindow.
type DuplicateCheckPort interface {
	RecentDuplicateExternalOrder(ctx context.Context, org uuid.UUID, externalOrderNumber string, window time.Duration) (bool, error)
}

// PipelineOptions configures a Pipeline's matching and validation
// tunables, the same "options struct with documented defaults" shape
// the teacher uses for its extractor/client construction.
type PipelineOptions struct {
	MatchSettings   matching.Settings
	ValidationPolicy string // empty uses the built-in default rego policy
}

// DefaultPipelineOptions returns the §6 documented defaults.
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		MatchSettings: matching.Settings{
			AutoApplyThreshold: 0.92,
			AutoApplyGap:       0.10,
			PriceTolerancePct:  5,
		},
	}
}

// Pipeline wires the orchestrator, matching engine, and validation
// engine into a single call, the public entry point for embedding
// OrderFlow's ingestion path in another Go program.
type Pipeline struct {
	Orchestrator *orchestrator.Orchestrator
	Catalog      matching.Catalog
	// Feedback is optional: when set, Ingest looks up layout-scoped
	// few-shot hints for documents that carry a layout fingerprint and
	// passes them to the orchestrator's LLM fallback.
	Feedback *feedback.Retriever
	// DuplicateCheck is optional: when set, Ingest looks up whether the
	// extracted external order number was already seen recently.
	DuplicateCheck DuplicateCheckPort
	validation     *validation.Engine
	options        PipelineOptions
}

// NewPipeline builds a Pipeline from its already-wired collaborators;
// callers construct the orchestrator (with its rule extractors, LLM
// fallback, and budget port) and catalog themselves since those carry
// process-specific credentials and connections this package has no
// business holding.
func NewPipeline(orch *orchestrator.Orchestrator, catalog matching.Catalog, opts PipelineOptions) *Pipeline {
	return &Pipeline{
		Orchestrator: orch,
		Catalog:      catalog,
		validation:   validation.New(opts.ValidationPolicy),
		options:      opts,
	}
}

// Result is what Ingest reports back: the canonical order, each line's
// match resolution, and the validation verdict.
type Result struct {
	Order       CanonicalOrder
	Matches     []matching.Result
	Issues      []ValidationIssue
	ReadyForReview bool
	UsedLLM     bool
	BudgetBlocked bool
}

// Ingest runs the full extract → match → validate path for one
// document's bytes. fileName is used only for mime-class detection (a
// missing or unrecognized extension falls back to magic-byte
// sniffing); org/customer scope the catalog lookups within a tenant.
func (p *Pipeline) Ingest(ctx context.Context, org, customer uuid.UUID, fileName string, data []byte, text string, layoutFingerprint string, heuristicLineCount int, dailyBudgetMicros int64) (Result, error) {
	class, ok := orchestrator.DetectMimeClass(fileName, data)
	if !ok {
		return Result{}, errUnrecognizedFormat(fileName)
	}

	input := data
	if class == orchestrator.MimePDFText {
		input = []byte(text)
	}

	var hints []llmextract.FewShotExample
	if p.Feedback != nil && layoutFingerprint != "" {
		h, err := p.Feedback.Hints(ctx, org, layoutFingerprint)
		if err != nil {
			return Result{}, err
		}
		hints = h
	}

	outcome, err := p.Orchestrator.Run(ctx, org, class, input, text, hints, heuristicLineCount, dailyBudgetMicros)
	if err != nil {
		return Result{}, err
	}

	matches := make([]matching.Result, 0, len(outcome.Order.Lines))
	lineInputs := make([]validation.LineInput, 0, len(outcome.Order.Lines))
	for _, line := range outcome.Order.Lines {
		m, err := matching.Match(ctx, p.Catalog, org, customer, matching.Line{
			CustomerSKURaw: line.CustomerSKURaw,
			Description:    line.Description,
			Qty:            line.Qty,
			UoM:            line.UoM,
			UnitPrice:      line.UnitPrice,
			Currency:       line.Currency,
			HasUnitPrice:   !line.UnitPrice.IsZero(),
		}, p.options.MatchSettings)
		if err != nil {
			return Result{}, err
		}
		matches = append(matches, m)
		metrics.MatchOutcomesTotal.WithLabelValues(org.String(), string(m.Method), string(m.Status)).Inc()

		lineInputs = append(lineInputs, validation.LineInput{
			LineNo:          line.LineNo,
			InternalSKU:     m.InternalSKU,
			MatchStatus:     m.Status,
			MatchConfidence: m.Confidence,
			HasPrice:        !line.UnitPrice.IsZero(),
			PriceDeltaPct:   m.PriceDeltaPct,
			HasPriceTier:    m.HasPriceTier,
			UoMCompatible:   m.UoMCompatible,
		})
	}

	var duplicateOrderWindow bool
	if p.DuplicateCheck != nil && outcome.Order.Order.ExternalOrderNumber != nil {
		dup, err := p.DuplicateCheck.RecentDuplicateExternalOrder(ctx, org, *outcome.Order.Order.ExternalOrderNumber, validation.DuplicateWindow)
		if err != nil {
			return Result{}, err
		}
		duplicateOrderWindow = dup
	}

	llmLineCount := 0
	if outcome.UsedLLM {
		llmLineCount = len(outcome.Order.Lines)
	}

	issues, ready, err := p.validation.Evaluate(ctx, validation.Input{
		HasCustomer:          outcome.Order.Order.CustomerHint != nil,
		Lines:                lineInputs,
		ExternalOrderNumber:  outcome.Order.Order.ExternalOrderNumber,
		DuplicateOrderWindow: duplicateOrderWindow,
		LLMLineCount:         llmLineCount,
		HeuristicLineCount:   heuristicLineCount,
		ExtractionWarnings:   outcome.Order.Warnings,
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		Order:          outcome.Order,
		Matches:        matches,
		Issues:         issues,
		ReadyForReview: ready,
		UsedLLM:        outcome.UsedLLM,
		BudgetBlocked:  outcome.BudgetBlocked,
	}, nil
}

type unrecognizedFormatError struct{ fileName string }

func (e unrecognizedFormatError) Error() string {
	return "orderflowlib: unrecognized document format for " + e.fileName
}

func errUnrecognizedFormat(fileName string) error {
	return unrecognizedFormatError{fileName: fileName}
}
