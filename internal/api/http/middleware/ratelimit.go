package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/weisyn/handshake/internal/api/http/types"
)

// RateLimit 按客户端 IP 限制写操作频率
// 读请求不受限制
type RateLimit struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimit 创建限流中间件，perSecond <= 0 表示不限流
func NewRateLimit(perSecond float64, burst int) *RateLimit {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimit{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (m *RateLimit) limiter(client string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.limiters[client]
	if !ok {
		l = rate.NewLimiter(m.limit, m.burst)
		m.limiters[client] = l
	}
	return l
}

// Middleware 返回Gin中间件
func (m *RateLimit) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.limit <= 0 || !isWriteOperation(c.Request.Method) {
			c.Next()
			return
		}
		if !m.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				types.NewErrorResponse(types.ErrRateLimitExceeded, "too many requests", nil).WithRequestID(GetRequestID(c)))
			return
		}
		c.Next()
	}
}

func isWriteOperation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
