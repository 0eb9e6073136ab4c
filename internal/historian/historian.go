package historian

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradehistory/config"
	"tradehistory/internal/backfill"
	"tradehistory/internal/history"
	"tradehistory/internal/universe"
	"tradehistory/pkg/binance"
	"tradehistory/pkg/storage/report"

	"go.uber.org/zap"
)

// API is the part of the venue a sync run talks to.
type API interface {
	universe.Lister
	backfill.TradeSource
}

// ReportSink stores the outcome rows of a run.
type ReportSink interface {
	InsertOutcomes(ctx context.Context, rows []report.SyncRecord) error
}

// Historian runs sync passes: validate the log, list the venue's symbols,
// rebuild resume cursors and backfill every symbol.
type Historian struct {
	API     API
	Log     *history.Log
	Reports ReportSink // optional

	PageSize    int
	Workers     int
	FailFast    bool
	RetryDelay  time.Duration
	ScanBatch   int
	ListTimeout time.Duration

	Logger *zap.Logger

	closers []func() error
}

// New wires a Historian from configuration: credentials, the Binance client
// and, when enabled, the report database.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Historian, error) {
	if err := config.ResolveCredentials(ctx, &cfg.Binance, nil); err != nil {
		return nil, err
	}
	client := binance.NewClient(binance.Config{
		BaseURL:           cfg.Binance.BaseURL,
		Timeout:           cfg.Binance.Timeout,
		APIKey:            cfg.Binance.APIKey,
		SecretKey:         cfg.Binance.SecretKey,
		PageSize:          cfg.Binance.PageSize,
		RequestsPerMinute: cfg.Binance.RequestsPerMinute,
	})

	h := &Historian{
		API:         client,
		Log:         history.NewLog(cfg.History.Path),
		PageSize:    client.PageSize(),
		Workers:     cfg.Sync.Workers,
		FailFast:    cfg.Sync.FailFast,
		RetryDelay:  cfg.Sync.RetryDelay,
		ScanBatch:   cfg.History.ScanBatch,
		ListTimeout: cfg.Binance.Timeout,
		Logger:      logger,
	}

	if cfg.Report.Enabled {
		if cfg.Report.Driver == "postgres" {
			if err := cfg.Report.Postgres.ResolvePassword(ctx, nil); err != nil {
				return nil, err
			}
		}
		store, err := report.Open(cfg.Report)
		if err != nil {
			return nil, fmt.Errorf("open report store: %w", err)
		}
		h.Reports = store
		h.closers = append(h.closers, store.Close)
	}
	return h, nil
}

// Close releases the report database, if any.
func (h *Historian) Close() error {
	var errs []error
	for _, c := range h.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Run performs one sync pass. The log is validated before any network call.
// The returned report is nil only when the run failed before backfill
// started; the error is non-nil when the run was aborted.
func (h *Historian) Run(ctx context.Context) (*backfill.Report, error) {
	runID := NewRunID()
	logger := h.Logger.With(zap.String("run_id", runID))

	records, err := h.Log.Validate()
	if err != nil {
		return nil, err
	}
	logger.Info("history log ok", zap.String("path", h.Log.Path()), zap.Int64("records", records))

	symbols, err := universe.Load(ctx, &universe.SymbolLoader{
		Lister:  h.API,
		Timeout: h.ListTimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	cursors, err := history.BuildCursors(h.Log, symbols.GetAll(), h.ScanBatch)
	if err != nil {
		return nil, err
	}
	logCursors(logger, symbols.GetAll(), cursors)

	sched := &backfill.Scheduler{
		Fetcher: &backfill.Fetcher{
			Source:     h.API,
			PageSize:   h.PageSize,
			RetryDelay: h.RetryDelay,
			Logger:     logger,
		},
		Log:      h.Log,
		Workers:  h.Workers,
		FailFast: h.FailFast,
		Logger:   logger,
	}
	rep, runErr := sched.Run(ctx, symbols.GetAll(), cursors)
	rep.RunID = runID

	logger.Info("sync finished",
		zap.String("summary", rep.Summary()),
		zap.Int("records", rep.Records()),
		zap.Duration("elapsed", rep.FinishedAt.Sub(rep.StartedAt)),
	)
	for _, o := range rep.Failed() {
		logger.Warn("symbol failed", zap.String("symbol", o.Symbol), zap.Error(o.Err))
	}

	h.saveReport(ctx, logger, rep)
	return rep, runErr
}

func (h *Historian) saveReport(ctx context.Context, logger *zap.Logger, rep *backfill.Report) {
	if h.Reports == nil {
		return
	}
	// the run context may already be cancelled
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := h.Reports.InsertOutcomes(ctx, SyncRecords(rep)); err != nil {
		logger.Warn("failed to store sync report", zap.Error(err))
	}
}

func logCursors(logger *zap.Logger, symbols []string, cursors history.Cursors) {
	var known int
	for _, s := range symbols {
		cur := cursors.Get(s)
		if cur.Known() {
			known++
		}
		logger.Debug("resume cursor", zap.String("symbol", s), zap.String("cursor", cur.String()))
	}
	logger.Info("resume cursors built", zap.Int("symbols", len(symbols)), zap.Int("with_data", known))
}

// Fatal reports whether err must stop a long-running sync loop rather than
// wait for the next pass.
func Fatal(err error) bool {
	return errors.Is(err, history.ErrStorage) || errors.Is(err, history.ErrCorruptLog)
}
