package runlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"sibyl/internal/agent"
	"sibyl/internal/track"
)

// runModel 是一轮运行的审计记录。Detail 保存完整摘要 JSON，结构化列只
// 保留查询会用到的字段。
type runModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	RunID      string    `gorm:"column:run_id;size:64;uniqueIndex"`
	StartedAt  time.Time `gorm:"column:started_at;index"`
	FinishedAt time.Time `gorm:"column:finished_at"`

	UpdatesAttempted int `gorm:"column:updates_attempted"`
	UpdatesFailed    int `gorm:"column:updates_failed"`
	UpdatesSkipped   int `gorm:"column:updates_skipped"`

	Detail datatypes.JSON `gorm:"column:detail;type:TEXT"`
}

func (runModel) TableName() string { return "run_log" }

// outcomeModel keeps the final state of each tracked transaction.
type outcomeModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	TxID      string    `gorm:"column:tx_id;size:128;index"`
	Symbol    string    `gorm:"column:symbol;size:32;index"`
	Timeframe string    `gorm:"column:timeframe;size:16"`
	Status    string    `gorm:"column:status;size:16"`
	Err       string    `gorm:"column:err;type:TEXT"`
	SeenAt    time.Time `gorm:"column:seen_at;index"`
}

func (outcomeModel) TableName() string { return "tx_outcomes" }

// Store persists run summaries and terminal transaction outcomes in SQLite.
type Store struct {
	db *gorm.DB
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("runlog: database path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("runlog: create dir %s: %w", dir, err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("runlog: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&runModel{}, &outcomeModel{}); err != nil {
		return nil, fmt.Errorf("runlog: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// AppendRun writes one finished run summary.
func (s *Store) AppendRun(ctx context.Context, summary agent.RunSummary) error {
	detail, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("runlog: encode summary: %w", err)
	}
	model := runModel{
		RunID:            summary.RunID,
		StartedAt:        summary.StartedAt,
		FinishedAt:       summary.FinishedAt,
		UpdatesAttempted: summary.UpdatesAttempted,
		UpdatesFailed:    summary.UpdatesFailed,
		UpdatesSkipped:   summary.UpdatesSkipped,
		Detail:           datatypes.JSON(detail),
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// RecentRuns returns the newest limit summaries, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]agent.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []runModel
	if err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]agent.RunSummary, 0, len(rows))
	for _, row := range rows {
		var summary agent.RunSummary
		if err := json.Unmarshal(row.Detail, &summary); err != nil {
			// Older rows may predate a summary field; fall back to columns.
			summary = agent.RunSummary{
				RunID:            row.RunID,
				StartedAt:        row.StartedAt,
				FinishedAt:       row.FinishedAt,
				UpdatesAttempted: row.UpdatesAttempted,
				UpdatesFailed:    row.UpdatesFailed,
				UpdatesSkipped:   row.UpdatesSkipped,
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

// RecordOutcome appends the terminal (or exhausted) state of a transaction.
// Wired to the tracking bus at startup so every settlement leaves a row.
func (s *Store) RecordOutcome(ctx context.Context, rec track.Record) error {
	model := outcomeModel{
		TxID:      rec.ID,
		Symbol:    rec.Symbol,
		Timeframe: rec.Timeframe,
		Status:    rec.Status.String(),
		Err:       rec.Err,
		SeenAt:    time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// OutcomesBySymbol lists recorded outcomes for one symbol, newest first.
func (s *Store) OutcomesBySymbol(ctx context.Context, symbol string, limit int) ([]track.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []outcomeModel
	if err := s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("seen_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]track.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, track.Record{
			ID:        row.TxID,
			Symbol:    row.Symbol,
			Timeframe: row.Timeframe,
			Status:    track.ParseStatus(row.Status),
			Err:       row.Err,
		})
	}
	return out, nil
}

// Close releases the underlying SQLite handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
