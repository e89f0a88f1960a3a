// 中文说明：
// gormstore 用 Gorm + SQLite 持久化平仓战绩与风险状态快照，
// 进程重启后由外层应用回放战绩恢复 RiskManager 状态。
package gormstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"premia/internal/risk"
)

// TradeOutcomeModel 单笔平仓结果。
type TradeOutcomeModel struct {
	ID       int64     `gorm:"column:id;primaryKey"`
	PnL      float64   `gorm:"column:pnl"`
	ClosedAt time.Time `gorm:"column:closed_at;index"`
	Note     string    `gorm:"column:note"`
}

func (TradeOutcomeModel) TableName() string { return "trade_outcomes" }

// RiskSnapshotModel 某一时刻的风险状态快照。
type RiskSnapshotModel struct {
	ID          int64          `gorm:"column:id;primaryKey"`
	TS          time.Time      `gorm:"column:ts;index"`
	Breaker     string         `gorm:"column:breaker"`
	PauseCause  string         `gorm:"column:pause_cause"`
	MetricsJSON datatypes.JSON `gorm:"column:metrics_json;type:TEXT"`
}

func (RiskSnapshotModel) TableName() string { return "risk_snapshots" }

// GormStore 持久化层入口。
type GormStore struct {
	db *gorm.DB
}

// New 打开（或创建）持久化库并完成迁移。
func New(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: 存储路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&TradeOutcomeModel{}, &RiskSnapshotModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: 限制连接数，降低锁竞争
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

// Close 关闭底层连接。
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQLDB 暴露底层 *sql.DB 供共享连接使用。
func (s *GormStore) SQLDB() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store 未初始化")
	}
	return s.db.DB()
}

// RecordOutcome 落一笔平仓结果。
func (s *GormStore) RecordOutcome(ctx context.Context, out risk.TradeOutcome, note string) error {
	m := TradeOutcomeModel{PnL: out.PnL, ClosedAt: out.ClosedAt, Note: note}
	return s.db.WithContext(ctx).Create(&m).Error
}

// Outcomes 按平仓时间升序返回全部战绩，供启动时回放。
func (s *GormStore) Outcomes(ctx context.Context) ([]risk.TradeOutcome, error) {
	var models []TradeOutcomeModel
	if err := s.db.WithContext(ctx).Order("closed_at ASC, id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]risk.TradeOutcome, 0, len(models))
	for _, m := range models {
		out = append(out, risk.TradeOutcome{PnL: m.PnL, ClosedAt: m.ClosedAt})
	}
	return out, nil
}

// SaveRiskSnapshot 落一条风险状态快照。
func (s *GormStore) SaveRiskSnapshot(ctx context.Context, met risk.Metrics) error {
	raw, err := json.Marshal(met)
	if err != nil {
		return err
	}
	m := RiskSnapshotModel{
		TS:          time.Now(),
		Breaker:     met.Breaker,
		PauseCause:  met.PauseCause,
		MetricsJSON: datatypes.JSON(raw),
	}
	return s.db.WithContext(ctx).Create(&m).Error
}

// LatestRiskSnapshot 返回最近一条快照，没有记录时返回 gorm.ErrRecordNotFound。
func (s *GormStore) LatestRiskSnapshot(ctx context.Context) (risk.Metrics, error) {
	var m RiskSnapshotModel
	if err := s.db.WithContext(ctx).Order("ts DESC, id DESC").First(&m).Error; err != nil {
		return risk.Metrics{}, err
	}
	var met risk.Metrics
	if err := json.Unmarshal(m.MetricsJSON, &met); err != nil {
		return risk.Metrics{}, fmt.Errorf("decode risk snapshot: %w", err)
	}
	return met, nil
}
