package apihttp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"premia/internal/decision"
	"premia/internal/market"
	"premia/internal/risk"
)

// DecisionEngine 决策入口契约。成交回报与熔断复位走这里而非直接
// 操作 RiskManager，方便外层同时落持久化。
type DecisionEngine interface {
	Evaluate(ctx context.Context, snap market.Snapshot) (decision.Decision, error)
	RecordTradeOutcome(ctx context.Context, pnl float64, note string) (risk.Metrics, error)
	RiskMetrics() risk.Metrics
	ResetRisk() risk.Metrics
}

// DecisionLogReader 审计日志查询契约。
type DecisionLogReader interface {
	Recent(ctx context.Context, limit int) ([]decision.Decision, error)
	ByTraceID(ctx context.Context, traceID string) (decision.Decision, error)
}

// PresetCatalog 档案目录契约。
type PresetCatalog interface {
	Names() []string
}

// Router 暴露决策相关接口。
type Router struct {
	engine   DecisionEngine
	logs     DecisionLogReader
	registry PresetCatalog
}

// NewRouter 构造 API router。
func NewRouter(engine DecisionEngine, logs DecisionLogReader, registry PresetCatalog) *Router {
	return &Router{engine: engine, logs: logs, registry: registry}
}

// Register 将 /api 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/evaluate", r.handleEvaluate)
	group.POST("/trades", r.handleTradeOutcome)
	group.GET("/risk", r.handleRiskMetrics)
	group.POST("/risk/reset", r.handleRiskReset)
	if r.logs != nil {
		group.GET("/decisions", r.handleRecentDecisions)
		group.GET("/decisions/:trace_id", r.handleDecisionByTrace)
	}
	if r.registry != nil {
		group.GET("/presets", r.handlePresets)
	}
}

// handleEvaluate 执行一次决策周期。入参先过结构校验再反序列化。
func (r *Router) handleEvaluate(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}
	if err := decision.ValidateSnapshotJSON(string(raw)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var snap market.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := r.engine.Evaluate(c.Request.Context(), snap)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}

type tradeOutcomeRequest struct {
	PnL  *float64 `json:"pnl" binding:"required"`
	Note string   `json:"note"`
}

func (r *Router) handleTradeOutcome(c *gin.Context) {
	var req tradeOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	met, err := r.engine.RecordTradeOutcome(c.Request.Context(), *req.PnL, req.Note)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, met)
}

func (r *Router) handleRiskMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, r.engine.RiskMetrics())
}

func (r *Router) handleRiskReset(c *gin.Context) {
	c.JSON(http.StatusOK, r.engine.ResetRisk())
}

func (r *Router) handleRecentDecisions(c *gin.Context) {
	limit := 50
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	out, err := r.logs.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": out, "count": len(out)})
}

func (r *Router) handleDecisionByTrace(c *gin.Context) {
	traceID := strings.TrimSpace(c.Param("trace_id"))
	d, err := r.logs.ByTraceID(c.Request.Context(), traceID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "decision not found", "trace_id": traceID})
		return
	}
	c.JSON(http.StatusOK, d)
}

func (r *Router) handlePresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"presets": r.registry.Names()})
}
