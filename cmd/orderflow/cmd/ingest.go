package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	csvextract "github.com/orderflow/orderflow/internal/extract/csv"
	"github.com/orderflow/orderflow/internal/extract/pdftext"
	"github.com/orderflow/orderflow/internal/extract/xlsx"
	"github.com/orderflow/orderflow/internal/feedback"
	"github.com/orderflow/orderflow/internal/llmextract"
	"github.com/orderflow/orderflow/internal/model"
	"github.com/orderflow/orderflow/internal/orchestrator"
	"github.com/orderflow/orderflow/internal/provider"
	"github.com/orderflow/orderflow/pkg/orderflowlib"
)

var (
	ingestOrgID             string
	ingestCustomerID        string
	ingestTextFile          string
	ingestTimeout           time.Duration
	ingestBudget            int64
	ingestLayoutFingerprint string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest one purchase-order file and print the matched, validated result",
	Long: `Ingest runs the extract -> match -> validate path for a single CSV, XLSX,
or PDF purchase order against the store buildStore opens (Postgres when
--db-dsn is set, otherwise an in-memory store), the same pipeline the
worker plane runs per inbound document.

For PDF input, pass the already-extracted text layer with --text-file: PDF
text extraction is an upstream collaborator's job, not this command's.

Examples:
  orderflow ingest order.csv --org 11111111-1111-1111-1111-111111111111 --customer <customer-id>
  orderflow ingest order.pdf --text-file order.txt --org <org-id> --customer <customer-id>`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestOrgID, "org", "", "Org UUID (required)")
	ingestCmd.Flags().StringVar(&ingestCustomerID, "customer", "", "Customer UUID (required)")
	ingestCmd.Flags().StringVar(&ingestTextFile, "text-file", "", "Path to extracted PDF text, required for .pdf input")
	ingestCmd.Flags().DurationVar(&ingestTimeout, "timeout", 2*time.Minute, "Ingestion timeout")
	ingestCmd.Flags().Int64Var(&ingestBudget, "daily-budget-micros", tunables.DailyBudgetMicros, "Daily AI budget in micros-of-USD (0 = unlimited)")
	ingestCmd.Flags().StringVar(&ingestLayoutFingerprint, "layout-fingerprint", "", "Layout fingerprint to scope few-shot correction hints (operator-supplied until PDF structural fingerprinting lands)")
	_ = ingestCmd.MarkFlagRequired("org")
	_ = ingestCmd.MarkFlagRequired("customer")
}

func runIngest(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	org, err := uuid.Parse(ingestOrgID)
	if err != nil {
		return fmt.Errorf("invalid --org: %w", err)
	}
	customer, err := uuid.Parse(ingestCustomerID)
	if err != nil {
		return fmt.Errorf("invalid --customer: %w", err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	var text string
	if ingestTextFile != "" {
		textBytes, err := os.ReadFile(ingestTextFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", ingestTextFile, err)
		}
		text = string(textBytes)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	store, closeStore, err := buildStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer closeStore()

	orch := buildOrchestrator(store)
	pipeline := orderflowlib.NewPipeline(orch, store, orderflowlib.DefaultPipelineOptions())
	pipeline.Feedback = &feedback.Retriever{Store: store}
	pipeline.DuplicateCheck = store

	printVerbose("Ingesting %s for org=%s customer=%s\n", filePath, org, customer)

	result, err := pipeline.Ingest(ctx, org, customer, filePath, data, text, ingestLayoutFingerprint, countHeuristicLines(filePath, data), ingestBudget)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	return outputIngestResult(result)
}

// buildOrchestrator wires every rule extractor and, when an LLM API key
// is configured, the text-extraction fallback behind a circuit breaker.
func buildOrchestrator(budget orchestrator.BudgetPort) *orchestrator.Orchestrator {
	rules := map[orchestrator.MimeClass]orchestrator.RuleExtractorFunc{
		orchestrator.MimeCSV:  csvextract.Extract,
		orchestrator.MimeXLSX: xlsx.Extract,
		orchestrator.MimePDFText: func(input []byte) (model.CanonicalOrder, error) {
			return pdftext.Extract(string(input))
		},
	}

	orch := &orchestrator.Orchestrator{Rules: rules, Budget: budget}

	if llmAPIKey != "" {
		var opts []provider.ClientOption
		if llmBaseURL != "" {
			opts = append(opts, provider.WithBaseURL(llmBaseURL))
		}
		client := provider.NewOpenAIClient(llmAPIKey, opts...)
		orch.LLM = &llmextract.Extractor{LLM: provider.NewBreakingLLM(client), Model: provider.DefaultChatModel}
		printVerbose("LLM extraction fallback enabled\n")
	}

	return orch
}

// countHeuristicLines is a cheap non-blank-line count used as the
// LineCountGuard's comparison baseline when the LLM fallback runs.
func countHeuristicLines(filePath string, data []byte) int {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == ".pdf" {
		return 0
	}
	lines := strings.Split(string(data), "\n")
	n := 0
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	if n > 0 {
		n-- // header row
	}
	return n
}

func outputIngestResult(result orderflowlib.Result) error {
	switch outputFormat {
	case "table":
		return outputIngestTable(result)
	default:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}

func outputIngestTable(result orderflowlib.Result) error {
	fmt.Printf("LINE\tSKU\tQTY\tCUSTOMER_SKU\tCONFIDENCE\n")
	for i, line := range result.Order.Lines {
		sku := "-"
		if i < len(result.Matches) && result.Matches[i].InternalSKU != nil {
			sku = *result.Matches[i].InternalSKU
		}
		conf := 0.0
		if i < len(result.Matches) {
			conf = result.Matches[i].Confidence
		}
		fmt.Printf("%d\t%s\t%s\t%s\t%.2f\n", line.LineNo, sku, line.Qty.String(), line.CustomerSKURaw, conf)
	}
	fmt.Printf("\nready_for_review=%v used_llm=%v budget_blocked=%v issues=%d\n",
		result.ReadyForReview, result.UsedLLM, result.BudgetBlocked, len(result.Issues))
	return nil
}
