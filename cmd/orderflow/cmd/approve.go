package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/orderflow/orderflow/internal/draft"
	"github.com/orderflow/orderflow/internal/model"
)

var (
	approveOrgID    string
	approveApprover string
	approveTo       string
)

var approveCmd = &cobra.Command{
	Use:   "approve [draft-id]",
	Short: "Transition a draft order's lifecycle status",
	Long: `Approve applies one of the C8 draft-lifecycle transitions to a draft
order: approving a READY draft, reverting an APPROVED or READY draft
back to NEEDS_REVIEW, or marking a PUSHING draft PUSHED/ERROR. Every
transition that produces an audit action is recorded in the audit log.`,
	Args: cobra.ExactArgs(1),
	RunE: runApprove,
}

func init() {
	rootCmd.AddCommand(approveCmd)

	approveCmd.Flags().StringVar(&approveOrgID, "org", "", "Org UUID (required)")
	approveCmd.Flags().StringVar(&approveApprover, "approver", "", "Approver actor ID, required when --to=APPROVED")
	approveCmd.Flags().StringVar(&approveTo, "to", string(model.DraftApproved), "Target status: READY, APPROVED, NEEDS_REVIEW, PUSHING, PUSHED, ERROR")
	_ = approveCmd.MarkFlagRequired("org")
}

func runApprove(cmd *cobra.Command, args []string) error {
	draftID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid draft id: %w", err)
	}
	org, err := uuid.Parse(approveOrgID)
	if err != nil {
		return fmt.Errorf("invalid --org: %w", err)
	}
	to := model.DraftStatus(approveTo)

	ctx := context.Background()
	store, closeStore, err := buildStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer closeStore()

	d, err := store.GetDraft(ctx, org, draftID)
	if err != nil {
		return fmt.Errorf("failed to load draft %s: %w", draftID, err)
	}

	from := d.Status
	action, err := draft.Transition(d, to, approveApprover, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("transition %s -> %s rejected: %w", from, to, err)
	}

	if err := store.SaveDraftStatus(ctx, d); err != nil {
		return fmt.Errorf("failed to persist draft status: %w", err)
	}

	if action != "" {
		if err := store.RecordAudit(ctx, org, approveApprover, draftID, action, map[string]any{
			"from_status": string(from),
			"to_status":   string(to),
		}); err != nil {
			return fmt.Errorf("failed to record audit entry: %w", err)
		}
	}

	printVerbose("draft %s: %s -> %s\n", draftID, from, to)
	fmt.Printf("draft_order_id=%s status=%s\n", draftID, d.Status)
	return nil
}
