package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"github.com/orderflow/orderflow/internal/cache/memcache"
	"github.com/orderflow/orderflow/internal/cache/rediscache"
	"github.com/orderflow/orderflow/internal/export"
	"github.com/orderflow/orderflow/internal/export/fsdrop"
	"github.com/orderflow/orderflow/internal/export/sftpdrop"
)

var (
	exportOrgID    string
	exportOrgSlug  string
	exportAttempt  int
	exportTTL      time.Duration
	exportOutDir   string
	exportAckDir   string
	exportSFTPAddr string
	exportSFTPUser string
	exportSFTPPass string
)

var exportCmd = &cobra.Command{
	Use:   "export [draft-id]",
	Short: "Push one approved draft order to the ERP dropzone",
	Long: `Export loads an approved draft order, projects it into the canonical
export JSON document, and writes it to the configured dropzone (local
filesystem by default, SFTP when --sftp-addr is set) under its
idempotency key, the same push path the worker's periodic reconciler
later polls acks against.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportOrgID, "org", "", "Org UUID (required)")
	exportCmd.Flags().StringVar(&exportOrgSlug, "org-slug", "", "Org slug stamped into the export document and idempotency key (required)")
	exportCmd.Flags().IntVar(&exportAttempt, "attempt", 1, "Push attempt number, recorded on the export; a failure at the last allowed attempt is fatal")
	exportCmd.Flags().DurationVar(&exportTTL, "idempotency-ttl", tunables.IdempotencyTTL, "How long a pushed draft's idempotency key blocks a re-push")
	exportCmd.Flags().StringVar(&exportOutDir, "out-dir", "./dropzone/out", "Filesystem dropzone outbound directory (ignored when --sftp-addr is set)")
	exportCmd.Flags().StringVar(&exportAckDir, "ack-dir", "./dropzone/ack", "Filesystem dropzone ack directory (ignored when --sftp-addr is set)")
	exportCmd.Flags().StringVar(&exportSFTPAddr, "sftp-addr", "", "host:port of an SFTP dropzone; switches the export off the local filesystem")
	exportCmd.Flags().StringVar(&exportSFTPUser, "sftp-user", "", "SFTP username (password auth)")
	exportCmd.Flags().StringVar(&exportSFTPPass, "sftp-password", "", "SFTP password")
	_ = exportCmd.MarkFlagRequired("org")
	_ = exportCmd.MarkFlagRequired("org-slug")
}

func runExport(cmd *cobra.Command, args []string) error {
	draftID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid draft id: %w", err)
	}
	org, err := uuid.Parse(exportOrgID)
	if err != nil {
		return fmt.Errorf("invalid --org: %w", err)
	}

	ctx := context.Background()

	store, closeStore, err := buildStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer closeStore()

	input, err := store.DraftForExport(ctx, org, draftID)
	if err != nil {
		return fmt.Errorf("failed to load draft %s: %w", draftID, err)
	}

	doc, err := export.BuildDocument(exportOrgSlug, input.CustomerName, input.ErpCustomerNumber, input.Document, input.Draft)
	if err != nil {
		return fmt.Errorf("failed to build export document: %w", err)
	}

	dz, closeDropzone, err := buildDropzone(ctx)
	if err != nil {
		return err
	}
	defer closeDropzone()

	cache := buildIdempotencyCache()

	pipeline := export.NewPipeline(dz, cache, store)
	if err := pipeline.Push(ctx, doc, exportAttempt, exportTTL); err != nil {
		return fmt.Errorf("export push failed: %w", err)
	}

	printVerbose("pushed draft %s (org=%s) to dropzone\n", draftID, exportOrgSlug)
	fmt.Printf("pushed draft_order_id=%s org_slug=%s\n", draftID, exportOrgSlug)
	return nil
}

// buildDropzone picks the SFTP dropzone when --sftp-addr is set,
// otherwise the local filesystem dropzone worker.go's reconciler also
// polls.
func buildDropzone(ctx context.Context) (export.Dropzone, func(), error) {
	if exportSFTPAddr == "" {
		return &fsdrop.Dropzone{OutDir: exportOutDir, AckDir: exportAckDir}, func() {}, nil
	}

	cfg := &ssh.ClientConfig{
		User:            exportSFTPUser,
		Auth:            []ssh.AuthMethod{ssh.Password(exportSFTPPass)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}
	dz, closeFn, err := sftpdrop.Dial(exportSFTPAddr, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("sftp dropzone dial failed: %w", err)
	}
	dz.OutDir = exportOutDir
	dz.AckDir = exportAckDir
	return dz, func() { _ = closeFn() }, nil
}

// buildIdempotencyCache uses Redis when --redis-addr is configured, the
// multi-worker production path, and falls back to the in-process cache
// for a single-node CLI run.
func buildIdempotencyCache() export.IdempotencyCache {
	if redisAddr == "" {
		return memcache.New()
	}
	return rediscache.New(redis.NewClient(&redis.Options{Addr: redisAddr}))
}
