package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/orderflow/orderflow/internal/export"
	"github.com/orderflow/orderflow/internal/export/fsdrop"
	"github.com/orderflow/orderflow/internal/retention"
)

var (
	workerPollInterval time.Duration
	workerOutDir       string
	workerAckDir       string
	workerProcessedDir string
	workerErrorDir     string
	workerRetentionHour int
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background ack-reconciliation and retention loops",
	Long: `Worker runs the two recurring background jobs the ingest/serve
commands don't: polling the ERP dropzone's ack directory on a fixed
interval, and sweeping aged-out documents and AI call logs once a day
at the configured UTC hour. It runs until interrupted.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().DurationVar(&workerPollInterval, "poll-interval", tunables.AckPollInterval, "Ack dropzone poll interval")
	workerCmd.Flags().StringVar(&workerOutDir, "out-dir", "./dropzone/out", "ERP export outbound directory")
	workerCmd.Flags().StringVar(&workerAckDir, "ack-dir", "./dropzone/ack", "ERP ack inbound directory")
	workerCmd.Flags().StringVar(&workerProcessedDir, "processed-dir", "./dropzone/processed", "Processed ack archive directory")
	workerCmd.Flags().StringVar(&workerErrorDir, "error-dir", "./dropzone/error", "Unparseable ack archive directory")
	workerCmd.Flags().IntVar(&workerRetentionHour, "retention-hour-utc", tunables.RetentionRunHourUTC, "UTC hour of day the retention sweep runs")
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dz := &fsdrop.Dropzone{
		OutDir:       workerOutDir,
		AckDir:       workerAckDir,
		ProcessedDir: workerProcessedDir,
		ErrorDir:     workerErrorDir,
	}
	store, closeStore, err := buildStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	reconciler := &export.Reconciler{Dropzone: dz, Store: store}
	retentionJob := &retention.Job{Store: store}

	printVerbose("worker started: ack poll every %s, retention sweep at %02d:00 UTC\n", workerPollInterval, workerRetentionHour)

	ackTicker := time.NewTicker(workerPollInterval)
	defer ackTicker.Stop()

	retentionCheck := time.NewTicker(time.Minute)
	defer retentionCheck.Stop()

	lastRetentionRun := time.Time{}

	for {
		select {
		case <-ctx.Done():
			printVerbose("worker shutting down\n")
			return nil

		case <-ackTicker.C:
			applied, err := reconciler.Poll(ctx)
			if err != nil {
				printVerbose("ack poll failed: %v\n", err)
				continue
			}
			if applied > 0 {
				printVerbose("applied %d ack file(s)\n", applied)
			}

		case now := <-retentionCheck.C:
			now = now.UTC()
			if now.Hour() != workerRetentionHour {
				continue
			}
			if now.Sub(lastRetentionRun) < 23*time.Hour {
				continue
			}
			report, err := retentionJob.RunOnce(ctx, now)
			if err != nil {
				printVerbose("retention sweep failed: %v\n", err)
				continue
			}
			lastRetentionRun = now
			printVerbose("retention sweep: %d org(s), %d document(s) soft-deleted, %d AI call log(s) hard-deleted\n",
				report.OrgsSwept, report.DocumentsSoftDeleted, report.AICallLogsHardDeleted)
		}
	}
}
