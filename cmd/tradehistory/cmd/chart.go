package cmd

import (
	"fmt"
	"os"
	"time"

	"tradehistory/internal/candles"
	"tradehistory/internal/history"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render candlestick charts from the trade history",
	Long: `Chart aggregates trades into OHLC candles and writes an HTML page with one
candlestick and volume chart per symbol. Candles come from the shared log, or
from the per-symbol archives in history.archive_dir with --archive.

Example:
  tradehistory chart --symbol BATBTC --interval 30m --out batbtc.html
  tradehistory chart --archive --out all.html`,
	RunE: runChart,
}

var (
	chartSymbols  []string
	chartInterval time.Duration
	chartArchive  bool
	chartOut      string
)

func init() {
	rootCmd.AddCommand(chartCmd)

	chartCmd.Flags().StringSliceVarP(&chartSymbols, "symbol", "s", nil, "symbols to chart (required without --archive)")
	chartCmd.Flags().DurationVarP(&chartInterval, "interval", "i", candles.DefaultInterval, "candle interval")
	chartCmd.Flags().BoolVar(&chartArchive, "archive", false, "read per-symbol archives instead of the shared log")
	chartCmd.Flags().StringVarP(&chartOut, "out", "o", "chart.html", "output HTML file")
}

func runChart(cmd *cobra.Command, _ []string) error {
	if chartInterval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}

	var (
		store *candles.Store
		err   error
	)
	if chartArchive {
		store, err = candles.LoadArchives(cmd.Context(), cfg.History.ArchiveDir, chartSymbols, chartInterval, cfg.Sync.Workers, log)
	} else {
		if len(chartSymbols) == 0 {
			return fmt.Errorf("--symbol is required when charting the shared log")
		}
		store, err = candles.LoadLog(history.NewLog(cfg.History.Path), chartSymbols, chartInterval, cfg.History.ScanBatch)
	}
	if err != nil {
		return err
	}

	f, err := os.Create(chartOut)
	if err != nil {
		return err
	}
	if err := candles.Render(f, store, chartSymbols, chartInterval); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info("chart written", zap.String("path", chartOut), zap.Strings("symbols", store.Symbols()), zap.Int("candles", store.CountAll()))
	return nil
}
