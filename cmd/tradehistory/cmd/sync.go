package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tradehistory/internal/historian"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Backfill every symbol's trade history",
	Long: `Sync lists the venue's symbols, rebuilds each symbol's resume cursor from
the log and pages backwards until every symbol reaches its first trade.

Example:
  tradehistory sync --workers 4
  tradehistory sync --daily`,
	RunE: runSync,
}

var (
	syncWorkers  int
	syncFailFast bool
	syncDaily    bool
)

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().IntVarP(&syncWorkers, "workers", "w", 0, "parallel symbols (overrides sync.workers)")
	syncCmd.Flags().BoolVar(&syncFailFast, "fail-fast", false, "abort on the first symbol error (overrides sync.fail_fast)")
	syncCmd.Flags().BoolVar(&syncDaily, "daily", false, "keep running and sync again at every UTC midnight (overrides sync.daily)")
}

func runSync(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Sync.Workers = syncWorkers
	}
	if flags.Changed("fail-fast") {
		cfg.Sync.FailFast = syncFailFast
	}
	if flags.Changed("daily") {
		cfg.Sync.Daily = syncDaily
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := historian.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start historian", zap.Error(err))
		return err
	}
	defer h.Close()

	if cfg.Sync.Daily {
		d := &historian.DailyLoader{Logger: log}
		err := <-d.Start(ctx, func(ctx context.Context) error {
			_, err := h.Run(ctx)
			if err != nil && historian.Fatal(err) {
				return err
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("sync pass failed, retrying at next midnight", zap.Error(err))
			}
			return nil
		})
		if err != nil {
			log.Error("sync stopped", zap.Error(err))
		}
		return err
	}

	rep, err := h.Run(ctx)
	if err != nil {
		log.Error("sync aborted", zap.Error(err))
		return err
	}
	if failed := rep.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d symbols failed (run %s)", len(failed), len(rep.Outcomes), rep.RunID)
	}
	return nil
}
