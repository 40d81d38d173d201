package app

import (
	"go.uber.org/fx"

	"github.com/weisyn/handshake/pkg/types"
)

// Option 应用程序选项函数类型
type Option func(*options)

// options 应用程序选项
type options struct {
	// 用户配置，nil 时全部使用默认值
	appConfig *types.AppConfig

	// API支持开关 (默认遵循配置)
	disableAPI bool

	// 额外注入的 fx 选项
	extra []fx.Option
}

// WithAppConfig 使用已解析的配置
func WithAppConfig(appConfig *types.AppConfig) Option {
	return func(o *options) {
		o.appConfig = appConfig
	}
}

// WithNode 覆盖节点网络配置
func WithNode(userNodeConfig *types.UserNodeConfig) Option {
	return func(o *options) {
		if o.appConfig == nil {
			o.appConfig = &types.AppConfig{}
		}
		o.appConfig.Node = userNodeConfig
	}
}

// WithoutAPI 禁用调试API模块，忽略配置中的 http_enabled
func WithoutAPI() Option {
	return func(o *options) {
		o.disableAPI = true
	}
}

// WithFxOptions 追加 fx 选项，如 fx.Populate 或 fx.Decorate
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) {
		o.extra = append(o.extra, opts...)
	}
}

// newOptions 创建选项
func newOptions(opts ...Option) *options {
	o := &options{appConfig: &types.AppConfig{}}
	for _, opt := range opts {
		opt(o)
	}
	if o.appConfig == nil {
		o.appConfig = &types.AppConfig{}
	}
	return o
}
