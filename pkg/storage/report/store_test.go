package report_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tradehistory/config"
	"tradehistory/pkg/storage/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *report.Store {
	t.Helper()
	store, err := report.Open(config.ReportConfig{
		Enabled:    true,
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "reports", "sync.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func int64Ptr(v int64) *int64 { return &v }

// go test -v --run TestInsertAndListRun
func TestInsertAndListRun(t *testing.T) {
	store := openSQLite(t)
	ctx := context.Background()
	started := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	rows := []report.SyncRecord{
		{RunID: "01HZZ0000000000000000000AA", Symbol: "ETHBTC", Status: "failed", Error: "binance: rate limited",
			StartedAt: started, FinishedAt: started.Add(time.Minute)},
		{RunID: "01HZZ0000000000000000000AA", Symbol: "AAABTC", Status: "complete",
			StartMinID: nil, EndMinID: int64Ptr(0), Pages: 2, Records: 4,
			StartedAt: started, FinishedAt: started.Add(time.Minute)},
		{RunID: "01HZZ0000000000000000000BB", Symbol: "AAABTC", Status: "skipped",
			StartMinID: int64Ptr(0), EndMinID: int64Ptr(0),
			StartedAt: started.Add(time.Hour), FinishedAt: started.Add(time.Hour)},
	}
	require.NoError(t, store.InsertOutcomes(ctx, rows))

	got, err := store.ListRun(ctx, "01HZZ0000000000000000000AA")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "AAABTC", got[0].Symbol)
	assert.Nil(t, got[0].StartMinID)
	require.NotNil(t, got[0].EndMinID)
	assert.Zero(t, *got[0].EndMinID)
	assert.Equal(t, 4, got[0].Records)
	assert.Equal(t, "binance: rate limited", got[1].Error)

	last, err := store.LastRunID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "01HZZ0000000000000000000BB", last)
}

// go test -v --run TestInsertOutcomesIgnoresDuplicates
func TestInsertOutcomesIgnoresDuplicates(t *testing.T) {
	store := openSQLite(t)
	ctx := context.Background()
	row := report.SyncRecord{RunID: "run", Symbol: "AAABTC", Status: "complete", StartedAt: time.Now(), FinishedAt: time.Now()}

	require.NoError(t, store.InsertOutcomes(ctx, []report.SyncRecord{row}))
	dup := row
	dup.Status = "failed"
	require.NoError(t, store.InsertOutcomes(ctx, []report.SyncRecord{dup}))

	got, err := store.ListRun(ctx, "run")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "complete", got[0].Status)
}

// go test -v --run TestOpenRejectsUnknownDriver
func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := report.Open(config.ReportConfig{Driver: "mysql"})
	assert.Error(t, err)

	_, err = report.NewSQLite("  ")
	assert.Error(t, err)
}

// go test -v --run TestEmptyStore
func TestEmptyStore(t *testing.T) {
	store := openSQLite(t)
	ctx := context.Background()

	assert.True(t, store.IsHealthy(ctx))
	last, err := store.LastRunID(ctx)
	require.NoError(t, err)
	assert.Empty(t, last)
	assert.NoError(t, store.InsertOutcomes(ctx, nil))
}

// go test -v --run TestCreateDatabase
func TestCreateDatabase(t *testing.T) {
	if os.Getenv("REPORT_POSTGRES_TEST") == "" {
		t.Skip("set REPORT_POSTGRES_TEST to run against a local postgres")
	}
	cfg := config.PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: os.Getenv("REPORT_POSTGRES_PASSWORD"),
		DBName:   "test_tradehistory",
		SSLMode:  "disable",
	}
	require.NoError(t, report.CreateDatabase(cfg))

	store, err := report.NewPostgres(cfg)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate())
}
