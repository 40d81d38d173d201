package node

import (
	"context"

	"go.uber.org/fx"

	hostpkg "github.com/weisyn/handshake/internal/core/infrastructure/node/impl/host"
	cfgprovider "github.com/weisyn/handshake/pkg/interfaces/config"
	logiface "github.com/weisyn/handshake/pkg/interfaces/infrastructure/log"
	nodeiface "github.com/weisyn/handshake/pkg/interfaces/infrastructure/node"
)

// ModuleParams 定义节点网络模块统一依赖
type ModuleParams struct {
	fx.In

	Provider cfgprovider.Provider `optional:"true"`
	Logger   logiface.Logger      `optional:"true"`
}

// ModuleOutput 定义节点网络模块输出
type ModuleOutput struct {
	fx.Out

	HostRuntime *hostpkg.Runtime
	Host        nodeiface.Host
	Service     *hostService
}

// ProvideServices 装配 host 运行时与适配层
func ProvideServices(p ModuleParams) (ModuleOutput, error) {
	var logger logiface.Logger
	if p.Logger != nil {
		logger = p.Logger.With("module", "node")
	}

	serviceOutput, err := CreateNodeServices(ServiceInput{
		Provider: p.Provider,
		Logger:   logger,
	})
	if err != nil {
		return ModuleOutput{}, err
	}

	return ModuleOutput{
		HostRuntime: serviceOutput.HostRuntime,
		Host:        serviceOutput.Host,
		Service:     serviceOutput.service,
	}, nil
}

// Module 返回节点网络模块（仅依赖注入与生命周期绑定）
func Module() fx.Option {
	return fx.Module("node",
		fx.Provide(ProvideServices),
		fx.Invoke(
			// 启动 host 后注册延迟的协议处理器；停止时关闭 host
			func(params struct {
				fx.In
				Lifecycle   fx.Lifecycle
				HostRuntime *hostpkg.Runtime
				Service     *hostService
				Logger      logiface.Logger `optional:"true"`
			}) {
				params.Lifecycle.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						if err := params.HostRuntime.Start(ctx); err != nil {
							if params.Logger != nil {
								params.Logger.Errorf("节点 host 启动失败: %v", err)
							}
							return err
						}
						params.Service.RegisterPendingHandlers()
						return nil
					},
					OnStop: func(ctx context.Context) error {
						if params.Logger != nil {
							params.Logger.Info("停止节点模块")
						}
						return params.HostRuntime.Stop(ctx)
					},
				})
			},
		),
	)
}
