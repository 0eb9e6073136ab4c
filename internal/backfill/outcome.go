package backfill

import (
	"fmt"
	"strings"
	"time"

	"tradehistory/internal/history"
)

type Status string

const (
	StatusComplete  Status = "complete"  // origin reached during this run
	StatusSkipped   Status = "skipped"   // already complete before the run
	StatusEmpty     Status = "empty"     // venue has no trades for the symbol
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var statusOrder = []Status{StatusComplete, StatusSkipped, StatusEmpty, StatusFailed, StatusCancelled}

// Outcome is the result of one symbol's backfill within a run.
type Outcome struct {
	Symbol  string
	Start   history.Cursor
	End     history.Cursor
	Pages   int
	Records int
	Retries int
	Status  Status
	Err     error
}

// Report collects the outcomes of one sync run, in universe order.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []Outcome
}

// Failed returns the outcomes that ended in error.
func (r *Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

func (r *Report) Counts() map[Status]int {
	counts := make(map[Status]int, len(statusOrder))
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}

// Records is the number of records appended during the run.
func (r *Report) Records() int {
	var n int
	for _, o := range r.Outcomes {
		n += o.Records
	}
	return n
}

// Summary renders the status counts on one line, e.g.
// "complete=3 skipped=1 empty=0 failed=1 cancelled=0".
func (r *Report) Summary() string {
	counts := r.Counts()
	parts := make([]string, 0, len(statusOrder))
	for _, s := range statusOrder {
		parts = append(parts, fmt.Sprintf("%s=%d", s, counts[s]))
	}
	return strings.Join(parts, " ")
}
