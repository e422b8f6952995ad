package cmd

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/orderflow/orderflow/internal/opsserver"
	"github.com/orderflow/orderflow/internal/store/postgres"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ops server (/healthz, /metrics)",
	Long: `Serve starts the operational HTTP surface: a /healthz endpoint that
aggregates readiness checks for every external dependency, and a
/metrics endpoint scraped by Prometheus. It is not a business API; the
ingest, match, and export paths are run through the CLI and worker
commands instead.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	checkers := map[string]opsserver.Checker{}

	if dbDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err := postgres.Connect(ctx, dbDSN)
		cancel()
		if err != nil {
			return err
		}
		checkers["postgres"] = func(ctx context.Context) error {
			return pool.Ping(ctx)
		}
	}

	if redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		checkers["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}

	srv := opsserver.NewServer(&opsserver.Config{
		Address:      serveAddr,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		Debug:        verbose,
	}, checkers)

	printVerbose("ops server listening on %s with %d checker(s)\n", serveAddr, len(checkers))
	return srv.Run()
}
