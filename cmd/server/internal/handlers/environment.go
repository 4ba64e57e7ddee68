package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/metrics"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator"
)

// defaultCacheTTL 环境检查结果缓存时长
const defaultCacheTTL = 30 * time.Second

// EnvironmentHandler 处理环境检查相关的 HTTP 请求
type EnvironmentHandler struct {
	probes orchestrator.EnvProbes
	ttl    time.Duration
	check  func(context.Context, orchestrator.EnvProbes) *orchestrator.EnvironmentStatus

	mutex     sync.Mutex
	cached    *orchestrator.EnvironmentStatus
	checkedAt time.Time
}

// NewEnvironmentHandler 创建新的环境检查处理器
func NewEnvironmentHandler(probes orchestrator.EnvProbes) *EnvironmentHandler {
	return &EnvironmentHandler{
		probes: probes,
		ttl:    defaultCacheTTL,
		check:  orchestrator.CheckEnvironment,
	}
}

// Status 返回环境状态，缓存过期或 force 为 true 时重新检查
func (h *EnvironmentHandler) Status(ctx context.Context, force bool) *orchestrator.EnvironmentStatus {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if force || h.cached == nil || time.Since(h.checkedAt) > h.ttl {
		h.cached = h.check(ctx, h.probes)
		h.checkedAt = time.Now()
		metrics.SetEnvironmentReady(h.cached.Ready)
	}
	return h.cached
}

// GetStatus 处理 GET /environment/status 请求
// 支持 force=true 查询参数强制重新检查
func (h *EnvironmentHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.Status(c.Request.Context(), c.Query("force") == "true"))
}

// Readiness 处理 GET /readiness 请求，环境未就绪时返回 503
func (h *EnvironmentHandler) Readiness(c *gin.Context) {
	status := h.Status(c.Request.Context(), c.Query("force") == "true")
	if !status.Ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "issues": status.Issues})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "warnings": status.Warnings})
}
