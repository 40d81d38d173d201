package config

import "go.uber.org/fx"

// Module 返回配置模块
// 依赖外部 fx.Supply 的 *types.AppConfig，输出 config.Provider
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(NewProvider),
	)
}
