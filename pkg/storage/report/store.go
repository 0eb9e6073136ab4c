package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tradehistory/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const insertBatchSize = 100

// Store persists sync outcomes. It works on sqlite or postgres.
type Store struct {
	DB *gorm.DB
}

// Open connects to the configured report database and migrates it. For
// postgres the database is created first when missing.
func Open(cfg config.ReportConfig) (*Store, error) {
	var (
		store *Store
		err   error
	)
	switch cfg.Driver {
	case "sqlite":
		store, err = NewSQLite(cfg.SQLitePath)
	case "postgres":
		if err := CreateDatabase(cfg.Postgres); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
		store, err = NewPostgres(cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown report driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func NewSQLite(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return &Store{DB: db}, nil
}

func NewPostgres(cfg config.PostgresConfig) (*Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}
	return &Store{DB: db}, nil
}

func (s *Store) Migrate() error {
	if err := s.DB.AutoMigrate(&SyncRecord{}); err != nil {
		return fmt.Errorf("auto-migrate sync table: %w", err)
	}
	return nil
}

// InsertOutcomes stores the rows of one run. Rows already stored for the same
// run and symbol are left untouched.
func (s *Store) InsertOutcomes(ctx context.Context, rows []SyncRecord) error {
	if len(rows) == 0 {
		return nil
	}
	tx := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}, {Name: "symbol"}},
			DoNothing: true,
		}).
		CreateInBatches(rows, insertBatchSize)
	if tx.Error != nil {
		return fmt.Errorf("insert sync records: %w", tx.Error)
	}
	return nil
}

// ListRun returns the rows of one run ordered by symbol.
func (s *Store) ListRun(ctx context.Context, runID string) ([]SyncRecord, error) {
	var rows []SyncRecord
	err := s.DB.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("symbol").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// LastRunID returns the id of the most recent run, or "" when none is stored.
func (s *Store) LastRunID(ctx context.Context) (string, error) {
	var rows []SyncRecord
	err := s.DB.WithContext(ctx).
		Order("started_at desc").Order("id desc").
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return "", err
	}
	return rows[0].RunID, nil
}

func (s *Store) IsHealthy(ctx context.Context) bool {
	db, err := s.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (s *Store) Close() error {
	db, err := s.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}
