package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/orderflow/orderflow/internal/feedback"
	"github.com/orderflow/orderflow/internal/model"
)

var (
	feedbackOrgID             string
	feedbackEventType         string
	feedbackBeforeFile        string
	feedbackAfterFile         string
	feedbackLayoutFingerprint string
	feedbackSnippet           string
	feedbackActor             string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record an operator correction as a feedback event",
	Long: `Feedback appends one FeedbackEvent to the correction log that feeds C4's
few-shot extraction hints back into later documents sharing the same
layout fingerprint. Use it from an operator tool or script each time a
reviewer confirms/rejects a mapping or corrects an extracted field or
line.`,
	RunE: runFeedback,
}

func init() {
	rootCmd.AddCommand(feedbackCmd)

	feedbackCmd.Flags().StringVar(&feedbackOrgID, "org", "", "Org UUID (required)")
	feedbackCmd.Flags().StringVar(&feedbackEventType, "event-type", "", "MAPPING_CONFIRMED, MAPPING_REJECTED, EXTRACTION_LINE_CORRECTED, EXTRACTION_FIELD_CORRECTED, or CUSTOMER_SELECTED (required)")
	feedbackCmd.Flags().StringVar(&feedbackBeforeFile, "before-file", "", "Path to a JSON object capturing the pre-correction value")
	feedbackCmd.Flags().StringVar(&feedbackAfterFile, "after-file", "", "Path to a JSON object capturing the post-correction value")
	feedbackCmd.Flags().StringVar(&feedbackLayoutFingerprint, "layout-fingerprint", "", "Layout fingerprint to scope this event for later few-shot retrieval")
	feedbackCmd.Flags().StringVar(&feedbackSnippet, "snippet", "", "Surrounding document text, truncated to 1500 runes")
	feedbackCmd.Flags().StringVar(&feedbackActor, "actor", "", "Actor ID recording the correction (required)")
	_ = feedbackCmd.MarkFlagRequired("org")
	_ = feedbackCmd.MarkFlagRequired("event-type")
	_ = feedbackCmd.MarkFlagRequired("actor")
}

func runFeedback(cmd *cobra.Command, args []string) error {
	org, err := uuid.Parse(feedbackOrgID)
	if err != nil {
		return fmt.Errorf("invalid --org: %w", err)
	}

	before, err := readFeedbackJSONFile(feedbackBeforeFile)
	if err != nil {
		return fmt.Errorf("failed to read --before-file: %w", err)
	}
	after, err := readFeedbackJSONFile(feedbackAfterFile)
	if err != nil {
		return fmt.Errorf("failed to read --after-file: %w", err)
	}

	ctx := context.Background()
	store, closeStore, err := buildStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer closeStore()

	capturer := feedback.Capturer{Store: store}
	eventType := model.FeedbackEventType(feedbackEventType)
	if err := capturer.Record(ctx, org, eventType, before, after, feedbackLayoutFingerprint, feedbackSnippet, feedbackActor); err != nil {
		return fmt.Errorf("failed to record feedback event: %w", err)
	}

	printVerbose("recorded %s feedback event for org=%s\n", eventType, org)
	fmt.Printf("event_type=%s layout_fingerprint=%q\n", eventType, feedbackLayoutFingerprint)
	return nil
}

func readFeedbackJSONFile(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
