// Package sqlite persists the execution journal in a local sqlite
// database. One row per decision or submission; the ops API reads the
// tail for the executions endpoint.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/execution"
)

// recordModel is the gorm row for one execution record
type recordModel struct {
	ID             int64           `gorm:"column:id;primaryKey;autoIncrement"`
	IntentID       string          `gorm:"column:intent_id;index"`
	TokenMint      string          `gorm:"column:token_mint"`
	Symbol         string          `gorm:"column:symbol"`
	Trigger        string          `gorm:"column:trigger_kind"`
	Level          int             `gorm:"column:level"`
	Mode           string          `gorm:"column:mode"`
	Quantity       decimal.Decimal `gorm:"column:quantity;type:TEXT"`
	Price          decimal.Decimal `gorm:"column:price;type:TEXT"`
	FilledQuantity decimal.Decimal `gorm:"column:filled_quantity;type:TEXT"`
	Signature      string          `gorm:"column:signature"`
	Success        bool            `gorm:"column:success"`
	Error          string          `gorm:"column:error"`
	Attempts       int             `gorm:"column:attempts"`
	CreatedAtUnix  int64           `gorm:"column:created_at;index"`
}

func (recordModel) TableName() string { return "executions" }

// Journal implements execution.Journal over sqlite
type Journal struct {
	db *gorm.DB
}

// New opens (or creates) the journal database at path
func New(path string) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	return NewFromDB(db)
}

// NewFromDB wraps an existing gorm handle (tests use in-memory sqlite)
func NewFromDB(db *gorm.DB) (*Journal, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	if err := db.AutoMigrate(&recordModel{}); err != nil {
		return nil, fmt.Errorf("migrate journal schema: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}
	return &Journal{db: db}, nil
}

// Record appends one execution record
func (j *Journal) Record(ctx context.Context, rec execution.Record) error {
	row := recordModel{
		IntentID:       rec.IntentID,
		TokenMint:      rec.TokenMint,
		Symbol:         rec.Symbol,
		Trigger:        rec.Trigger,
		Level:          rec.Level,
		Mode:           rec.Mode,
		Quantity:       rec.Quantity,
		Price:          rec.Price,
		FilledQuantity: rec.FilledQuantity,
		Signature:      rec.Signature,
		Success:        rec.Success,
		Error:          rec.Error,
		Attempts:       rec.Attempts,
		CreatedAtUnix:  rec.CreatedAt.Unix(),
	}
	if row.CreatedAtUnix <= 0 {
		row.CreatedAtUnix = time.Now().Unix()
	}
	return j.db.WithContext(ctx).Create(&row).Error
}

// Recent returns up to limit records, newest first
func (j *Journal) Recent(ctx context.Context, limit int) ([]execution.Record, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []recordModel
	if err := j.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]execution.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, execution.Record{
			IntentID:       row.IntentID,
			TokenMint:      row.TokenMint,
			Symbol:         row.Symbol,
			Trigger:        row.Trigger,
			Level:          row.Level,
			Mode:           row.Mode,
			Quantity:       row.Quantity,
			Price:          row.Price,
			FilledQuantity: row.FilledQuantity,
			Signature:      row.Signature,
			Success:        row.Success,
			Error:          row.Error,
			Attempts:       row.Attempts,
			CreatedAt:      time.Unix(row.CreatedAtUnix, 0).UTC(),
		})
	}
	return records, nil
}

// Close releases the underlying database handle
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
