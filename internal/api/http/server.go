// Package http 提供节点调试 HTTP 接口
//
// 仅用于运维与调试：查看本节点地址、地址簿、指标，以及手动触发握手。
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weisyn/handshake/internal/api/http/handlers"
	"github.com/weisyn/handshake/internal/api/http/middleware"
	apiconfig "github.com/weisyn/handshake/internal/config/api"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/log"
)

// Deps 路由所需的业务依赖
type Deps struct {
	Version    string
	Identity   handlers.Identity
	Listener   handlers.Listener
	Connector  handlers.Connector
	Book       handlers.PeerBook
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// Server 调试 HTTP 服务器
type Server struct {
	router *gin.Engine
	opts   apiconfig.HTTPConfig
	logger log.Logger

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// NewServer 创建服务器并注册路由
func NewServer(opts apiconfig.HTTPConfig, deps Deps, logger log.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.NewMetrics(deps.Registerer).Middleware(),
		middleware.NewRateLimit(opts.WriteRateLimit, opts.WriteBurst).Middleware(),
	)
	if opts.MaxRequestSize > 0 {
		limit := opts.MaxRequestSize
		router.Use(func(c *gin.Context) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
			c.Next()
		})
	}

	s := &Server{router: router, opts: opts, logger: logger}
	s.setupRoutes(deps)
	return s
}

func (s *Server) setupRoutes(deps Deps) {
	handlers.NewHealthHandler(deps.Version).RegisterRoutes(s.router)
	handlers.NewNodeHandler(deps.Identity, deps.Listener, deps.Connector, s.logger).RegisterRoutes(s.router)
	if deps.Book != nil {
		handlers.NewPeersHandler(deps.Book).RegisterRoutes(s.router)
	}
	if deps.Gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
}

// Handler 返回路由，便于测试
func (s *Server) Handler() http.Handler { return s.router }

// Start 开始监听，端口为 0 时由系统分配
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return nil
	}

	addr := net.JoinHostPort(s.opts.Host, fmt.Sprint(s.opts.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("调试API监听 %s 失败: %w", addr, err)
	}
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}
	s.httpServer = srv
	s.listener = ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("调试API服务异常退出: %v", err)
		}
	}()
	s.logger.Infof("调试API已启动: http://%s", ln.Addr())
	return nil
}

// Addr 实际监听地址，未启动时为空
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop 优雅关闭
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("关闭调试API")
	return srv.Shutdown(ctx)
}
