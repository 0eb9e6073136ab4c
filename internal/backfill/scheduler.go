package backfill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradehistory/internal/history"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Appender persists a batch of records. *history.Log is the production
// implementation; a failed append must wrap history.ErrStorage.
type Appender interface {
	Append(records []history.TradeRecord) error
}

// Scheduler runs one backfill loop per symbol on a bounded pool of workers.
type Scheduler struct {
	Fetcher *Fetcher
	Log     Appender
	Workers int

	// FailFast aborts the whole run on the first symbol error instead of
	// recording it and moving on. Storage errors always abort.
	FailFast bool

	// OnProgress, when set, is called after every appended page.
	OnProgress func(symbol string, cur history.Cursor)

	Logger *zap.Logger
}

// Run backfills every symbol starting from its cursor and returns one
// Outcome per symbol, in input order. The error is non-nil when the run was
// aborted: a storage failure, a symbol error under FailFast, or ctx ending.
// The report is returned in every case.
func (s *Scheduler) Run(ctx context.Context, symbols []string, cursors history.Cursors) (*Report, error) {
	report := &Report{StartedAt: time.Now().UTC(), Outcomes: make([]Outcome, len(symbols))}

	workers := min(max(s.Workers, 1), max(len(symbols), 1))
	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan int)

	g.Go(func() error {
		defer close(queue)
		for i := range symbols {
			select {
			case queue <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range queue {
				symbol := symbols[i]
				o := s.backfill(gctx, symbol, cursors.Get(symbol))
				report.Outcomes[i] = o

				switch {
				case o.Err == nil, o.Status == StatusCancelled:
				case errors.Is(o.Err, history.ErrStorage):
					return fmt.Errorf("%s: %w", symbol, o.Err)
				case s.FailFast:
					return fmt.Errorf("%s: %w", symbol, o.Err)
				}
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	for i := range report.Outcomes {
		if report.Outcomes[i].Status == "" {
			cur := cursors.Get(symbols[i])
			report.Outcomes[i] = Outcome{
				Symbol: symbols[i],
				Start:  cur,
				End:    cur,
				Status: StatusCancelled,
				Err:    context.Canceled,
			}
		}
	}
	report.FinishedAt = time.Now().UTC()
	return report, err
}

func (s *Scheduler) backfill(ctx context.Context, symbol string, cur history.Cursor) Outcome {
	o := Outcome{Symbol: symbol, Start: cur, End: cur}
	if cur.Complete() {
		o.Status = StatusSkipped
		return o
	}

	for !cur.Complete() {
		if err := ctx.Err(); err != nil {
			return s.fail(ctx, o, err)
		}
		page, err := s.Fetcher.NextPage(ctx, symbol, cur)
		o.Retries += page.Retries
		if err != nil {
			return s.fail(ctx, o, err)
		}
		if len(page.Records) == 0 {
			o.Status = StatusEmpty
			s.Logger.Info("no trades for symbol", zap.String("symbol", symbol))
			return o
		}
		if err := s.Log.Append(page.Records); err != nil {
			return s.fail(ctx, o, err)
		}

		cur = page.Cursor
		o.End = cur
		o.Pages++
		o.Records += len(page.Records)

		s.Logger.Info("backfill progress",
			zap.String("symbol", symbol),
			zap.Int64("min_id", cur.MinID),
			zap.String("min_time", history.FormatTime(cur.MinTime)),
		)
		if s.OnProgress != nil {
			s.OnProgress(symbol, cur)
		}
	}

	o.Status = StatusComplete
	s.Logger.Info("backfill complete", zap.String("symbol", symbol), zap.Int("records", o.Records))
	return o
}

func (s *Scheduler) fail(ctx context.Context, o Outcome, err error) Outcome {
	o.Err = err
	if ctx.Err() != nil && !errors.Is(err, history.ErrStorage) {
		o.Status = StatusCancelled
		return o
	}
	o.Status = StatusFailed
	s.Logger.Error("backfill failed", zap.String("symbol", o.Symbol), zap.Int64("min_id", o.End.MinID), zap.Error(err))
	return o
}
