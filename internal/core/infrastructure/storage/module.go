// Package storage 提供存储管理功能
package storage

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	badgerconfig "github.com/weisyn/handshake/internal/config/storage/badger"
	"github.com/weisyn/handshake/internal/core/infrastructure/storage/badger"
	"github.com/weisyn/handshake/pkg/interfaces/config"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/log"
	storageInterface "github.com/weisyn/handshake/pkg/interfaces/infrastructure/storage"
)

// ModuleParams 定义存储模块的依赖参数
type ModuleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Provider  config.Provider // 配置提供者
	Logger    log.Logger      // 日志记录器
}

// ModuleOutput 定义存储模块的输出结构
type ModuleOutput struct {
	fx.Out

	Store storageInterface.KVStore // 节点状态存储
}

// Module 返回存储模块
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 打开状态存储，并在应用停止时关闭
func ProvideServices(params ModuleParams) (ModuleOutput, error) {
	logger := params.Logger.With("module", "storage")

	store, err := badger.New(badgerconfig.NewFromOptions(params.Provider.GetStorage()), logger)
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("创建状态存储失败: %w", err)
	}

	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("正在关闭存储服务...")
			return store.Close()
		},
	})

	return ModuleOutput{Store: store}, nil
}
