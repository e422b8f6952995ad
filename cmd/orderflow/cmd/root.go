package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orderflow/orderflow/internal/config"
)

var (
	version = "0.1.0"

	// Global flags
	verbose      bool
	outputFormat string
	dbDSN        string
	redisAddr    string
	llmAPIKey    string
	llmBaseURL   string

	// tunables holds the §6 process defaults, overlaid with whatever
	// environment variables config.FromEnv recognizes; every command's
	// flag defaults are seeded from this instead of a second set of
	// hardcoded literals.
	tunables = config.FromEnv()
)

var rootCmd = &cobra.Command{
	Use:   "orderflow",
	Short: "Ingest, match, validate, and export B2B purchase orders",
	Long: `OrderFlow is a CLI and worker for the B2B purchase-order intake pipeline.

It turns inbound CSV/XLSX/PDF purchase orders into canonical orders,
resolves each line against a product catalog, flags issues an operator
must review, and pushes approved drafts to an ERP dropzone.

Examples:
  # Ingest a single purchase order file
  orderflow ingest order.csv --org 11111111-1111-1111-1111-111111111111 --customer <customer-id>

  # Run the background worker (ack poller + retention sweep)
  orderflow worker

  # Start the ops server (/healthz, /metrics)
  orderflow serve`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, table)")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "db-dsn", "", "Postgres connection string (env: ORDERFLOW_DB_DSN)")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", "", "Redis address for cache/budget state (env: ORDERFLOW_REDIS_ADDR)")
	rootCmd.PersistentFlags().StringVar(&llmAPIKey, "llm-api-key", "", "API key for the LLM extraction fallback (env: ORDERFLOW_LLM_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&llmBaseURL, "llm-base-url", "", "LLM API base URL (env: ORDERFLOW_LLM_BASE_URL)")

	cobra.OnInitialize(initConfigFromEnv)
}

func initConfigFromEnv() {
	if dbDSN == "" {
		dbDSN = os.Getenv("ORDERFLOW_DB_DSN")
	}
	if redisAddr == "" {
		redisAddr = os.Getenv("ORDERFLOW_REDIS_ADDR")
	}
	if llmAPIKey == "" {
		llmAPIKey = os.Getenv("ORDERFLOW_LLM_API_KEY")
	}
	if llmBaseURL == "" {
		llmBaseURL = os.Getenv("ORDERFLOW_LLM_BASE_URL")
	}
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
