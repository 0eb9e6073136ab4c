package historian

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DailyLoader runs a job once immediately and then at every UTC midnight.
type DailyLoader struct {
	Now    func() time.Time // defaults to time.Now
	Logger *zap.Logger
}

// Start runs proc in the background until ctx ends or proc returns an error.
// The returned channel receives that error (nil when ctx ended) and is closed.
func (d *DailyLoader) Start(ctx context.Context, proc func(context.Context) error) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		for {
			if err := proc(ctx); err != nil {
				done <- err
				return
			}

			wait := d.untilMidnight()
			d.Logger.Info("next sync scheduled", zap.Duration("in", wait))
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				done <- nil
				return
			case <-t.C:
			}
		}
	}()
	return done
}

func (d *DailyLoader) untilMidnight() time.Duration {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	t := now().UTC()
	next := t.Truncate(24 * time.Hour).Add(24 * time.Hour)
	return next.Sub(t)
}
