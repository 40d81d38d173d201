package http

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/weisyn/handshake/internal/core/addressbook"
	"github.com/weisyn/handshake/internal/core/handshake"
	"github.com/weisyn/handshake/pkg/interfaces/config"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/node"
)

// ModuleParams 调试API依赖
type ModuleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Provider   config.Provider
	Logger     log.Logger
	Host       node.Host
	Service    *handshake.Service
	Protocol   *handshake.Protocol
	Book       *addressbook.Book
	Registerer prometheus.Registerer `optional:"true"`
	Gatherer   prometheus.Gatherer   `optional:"true"`
	Version    string                `name:"version" optional:"true"`
}

// Module 返回调试API模块
func Module() fx.Option {
	return fx.Module("api",
		fx.Provide(ProvideServer),
		fx.Invoke(func(*Server) {}),
	)
}

// ProvideServer 创建调试API，配置关闭时返回 nil
func ProvideServer(p ModuleParams) *Server {
	opts := p.Provider.GetAPI().HTTP
	logger := p.Logger.With("module", "api")
	if !opts.Enabled {
		logger.Info("调试API未启用")
		return nil
	}

	reg := p.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	srv := NewServer(opts, Deps{
		Version:    p.Version,
		Identity:   p.Service,
		Listener:   p.Host,
		Connector:  p.Protocol,
		Book:       p.Book,
		Registerer: reg,
		Gatherer:   gatherer,
	}, logger)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error { return srv.Start() },
		OnStop:  srv.Stop,
	})
	return srv
}
