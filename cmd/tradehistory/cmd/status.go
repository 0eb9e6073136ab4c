package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"tradehistory/internal/history"
	"tradehistory/pkg/storage/report"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the resume cursor of every symbol in the log",
	Long: `Status scans the history log and prints, per symbol, the oldest trade on
disk and whether backfill has reached the symbol's first trade. It makes no
network calls.`,
	RunE: runStatus,
}

var statusFormat string

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&statusFormat, "format", "o", "table", "output format: table or yaml")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	if err := writeStatus(w, statusFormat, history.NewLog(cfg.History.Path), cfg.History.ScanBatch); err != nil {
		return err
	}
	if !cfg.Report.Enabled || statusFormat == "yaml" {
		return nil
	}

	if cfg.Report.Driver == "postgres" {
		if err := cfg.Report.Postgres.ResolvePassword(cmd.Context(), nil); err != nil {
			return err
		}
	}
	store, err := report.Open(cfg.Report)
	if err != nil {
		return err
	}
	defer store.Close()
	return writeLastRun(cmd.Context(), w, store)
}

// writeLastRun prints the per-status counts of the most recent sync run.
func writeLastRun(ctx context.Context, w io.Writer, store *report.Store) error {
	runID, err := store.LastRunID(ctx)
	if err != nil || runID == "" {
		return err
	}
	rows, err := store.ListRun(ctx, runID)
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	var records int
	for _, r := range rows {
		counts[r.Status]++
		records += r.Records
	}
	statuses := make([]string, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)

	fmt.Fprintf(w, "last sync %s at %s: %d records appended\n", runID, rows[0].StartedAt.UTC().Format(time.RFC3339), records)
	for _, s := range statuses {
		fmt.Fprintf(w, "  %-10s %d\n", s, counts[s])
	}
	return nil
}

type logStatus struct {
	Path    string         `yaml:"path"`
	Records int64          `yaml:"records"`
	Symbols []symbolStatus `yaml:"symbols"`
}

type symbolStatus struct {
	Symbol   string `yaml:"symbol"`
	MinID    int64  `yaml:"min_id"`
	MinTime  string `yaml:"min_time"`
	Complete bool   `yaml:"complete"`
}

func writeStatus(w io.Writer, format string, l *history.Log, batch int) error {
	cursors, records, err := history.Summarize(l, batch)
	if err != nil {
		return err
	}

	st := logStatus{Path: l.Path(), Records: records, Symbols: make([]symbolStatus, 0, len(cursors))}
	for _, key := range cursors.Keys() {
		cur := cursors[key]
		st.Symbols = append(st.Symbols, symbolStatus{
			Symbol:   key,
			MinID:    cur.MinID,
			MinTime:  history.FormatTime(cur.MinTime),
			Complete: cur.Complete(),
		})
	}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(st); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "SYMBOL\tMIN ID\tMIN TIME\tCOMPLETE\n")
		for _, s := range st.Symbols {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%t\n", s.Symbol, s.MinID, s.MinTime, s.Complete)
		}
		fmt.Fprintf(tw, "\n%d records in %s\n", st.Records, st.Path)
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
