package report

import "time"

// SyncRecord is the outcome of one symbol in one sync run.
type SyncRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	RunID  string `gorm:"type:varchar(26);not null;index:idx_sync_run_symbol,unique"`
	Symbol string `gorm:"type:text;not null;index:idx_sync_symbol;index:idx_sync_run_symbol,unique"`

	Status string `gorm:"type:varchar(16);not null"`
	Error  string `gorm:"type:text"`

	// nil when the symbol had no data on disk
	StartMinID *int64
	EndMinID   *int64

	Pages   int `gorm:"not null"`
	Records int `gorm:"not null"`
	Retries int `gorm:"not null"`

	StartedAt  time.Time `gorm:"not null;index:idx_sync_started_at"`
	FinishedAt time.Time `gorm:"not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (SyncRecord) TableName() string {
	return "sync_record"
}
