package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/handshake/internal/api/http/types"
)

// HealthHandler 存活检查
type HealthHandler struct {
	version   string
	startTime time.Time
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version, startTime: time.Now()}
}

// RegisterRoutes 注册 GET /health
func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.GetHealth)
}

// GetHealth 进程能响应即视为健康
func (h *HealthHandler) GetHealth(c *gin.Context) {
	respondOK(c, types.HealthResponse{
		Status:    "ok",
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Truncate(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
