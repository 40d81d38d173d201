// Package config provides configuration provider interfaces.
package config

import (
	apiconfig "github.com/weisyn/handshake/internal/config/api"
	handshakeconfig "github.com/weisyn/handshake/internal/config/handshake"
	logconfig "github.com/weisyn/handshake/internal/config/log"
	nodeconfig "github.com/weisyn/handshake/internal/config/node"
	badgerconfig "github.com/weisyn/handshake/internal/config/storage/badger"
	"github.com/weisyn/handshake/pkg/types"
)

// Provider 配置提供者接口
// 每个 Get 方法返回已合并默认值的完整选项
type Provider interface {
	// GetNode 获取节点网络配置
	GetNode() *nodeconfig.NodeOptions

	// GetHandshake 获取握手协议配置
	GetHandshake() *handshakeconfig.HandshakeOptions

	// GetStorage 获取状态存储配置
	GetStorage() *badgerconfig.BadgerOptions

	// GetAPI 获取调试API配置
	GetAPI() *apiconfig.APIOptions

	// GetLog 获取日志配置
	GetLog() *logconfig.LogOptions

	// GetAppConfig 获取原始应用配置
	GetAppConfig() *types.AppConfig
}
