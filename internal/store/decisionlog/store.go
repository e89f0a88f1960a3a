// 中文说明：
// decisionlog 持久化每次决策周期的完整记录（审计日志），方便后续排查/可视化。
// 底层是单文件 SQLite（WAL），可复用外部初始化的连接避免多连接锁冲突。
package decisionlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"premia/internal/decision"
)

// Store 管理决策审计日志。
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	ownsDB bool
}

// New 打开（或创建）审计日志库。
func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("decision log path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path, ownsDB: true}, nil
}

// UseExternalDB 复用外部（例如 GORM）初始化的 SQLite 连接。
func (s *Store) UseExternalDB(db *sql.DB) error {
	if s == nil {
		return fmt.Errorf("decision log store 未初始化")
	}
	if db == nil {
		return fmt.Errorf("external db 不能为空")
	}
	if err := ensureSchema(db); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownsDB && s.db != nil && s.db != db {
		_ = s.db.Close()
	}
	s.db = db
	s.ownsDB = false
	return nil
}

// Close 关闭底层 DB。
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	if !s.ownsDB {
		s.db = nil
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureSchema(db *sql.DB) error {
	_, err := db.ExecContext(context.Background(), `CREATE TABLE IF NOT EXISTS decision_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trace_id TEXT NOT NULL,
		ts INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		trade INTEGER NOT NULL,
		contract_symbol TEXT,
		contracts INTEGER NOT NULL DEFAULT 0,
		fraction REAL NOT NULL DEFAULT 0,
		score REAL NOT NULL DEFAULT 0,
		regime TEXT,
		rationale TEXT NOT NULL,
		payload TEXT NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(context.Background(),
		`CREATE INDEX IF NOT EXISTS idx_decision_logs_trace ON decision_logs(trace_id)`)
	return err
}

func (s *Store) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("decision log store 已关闭")
	}
	return s.db, nil
}

// SaveDecision 落一条决策记录，满足 engine.Sink 契约。
func (s *Store) SaveDecision(ctx context.Context, d decision.Decision) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	rationale, err := json.Marshal(d.Rationale)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	contractSymbol := ""
	if d.Contract != nil {
		contractSymbol = d.Contract.Symbol
	}
	trade := 0
	if d.Trade {
		trade = 1
	}
	_, err = db.ExecContext(ctx, `INSERT INTO decision_logs
		(trace_id, ts, symbol, trade, contract_symbol, contracts, fraction, score, regime, rationale, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.TraceID, d.DecidedAt.UnixMilli(), d.Symbol, trade, contractSymbol,
		d.Contracts, d.Fraction, d.Score, string(d.Regime), string(rationale), string(payload))
	return err
}

// Recent 返回最近 limit 条决策，按时间倒序。
func (s *Store) Recent(ctx context.Context, limit int) ([]decision.Decision, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx,
		`SELECT payload FROM decision_logs ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDecisions(rows)
}

// ByTraceID 返回指定 trace 的决策记录。
func (s *Store) ByTraceID(ctx context.Context, traceID string) (decision.Decision, error) {
	db, err := s.conn()
	if err != nil {
		return decision.Decision{}, err
	}
	var payload string
	err = db.QueryRowContext(ctx,
		`SELECT payload FROM decision_logs WHERE trace_id = ? ORDER BY id DESC LIMIT 1`,
		strings.TrimSpace(traceID)).Scan(&payload)
	if err != nil {
		return decision.Decision{}, err
	}
	var d decision.Decision
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return decision.Decision{}, fmt.Errorf("decode decision payload: %w", err)
	}
	return d, nil
}

func scanDecisions(rows *sql.Rows) ([]decision.Decision, error) {
	var out []decision.Decision
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var d decision.Decision
		if err := json.Unmarshal([]byte(payload), &d); err != nil {
			return nil, fmt.Errorf("decode decision payload: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
