package historian

import (
	"tradehistory/internal/backfill"
	"tradehistory/internal/history"
	"tradehistory/pkg/storage/report"
)

// SyncRecords converts a run report into report rows.
func SyncRecords(rep *backfill.Report) []report.SyncRecord {
	rows := make([]report.SyncRecord, 0, len(rep.Outcomes))
	for _, o := range rep.Outcomes {
		row := report.SyncRecord{
			RunID:      rep.RunID,
			Symbol:     o.Symbol,
			Status:     string(o.Status),
			StartMinID: minID(o.Start),
			EndMinID:   minID(o.End),
			Pages:      o.Pages,
			Records:    o.Records,
			Retries:    o.Retries,
			StartedAt:  rep.StartedAt,
			FinishedAt: rep.FinishedAt,
		}
		if o.Err != nil {
			row.Error = o.Err.Error()
		}
		rows = append(rows, row)
	}
	return rows
}

func minID(c history.Cursor) *int64 {
	if !c.Known() {
		return nil
	}
	id := c.MinID
	return &id
}
