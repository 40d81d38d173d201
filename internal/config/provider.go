package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/weisyn/handshake/internal/config/api"
	"github.com/weisyn/handshake/internal/config/handshake"
	"github.com/weisyn/handshake/internal/config/log"
	"github.com/weisyn/handshake/internal/config/node"
	"github.com/weisyn/handshake/internal/config/storage/badger"
	"github.com/weisyn/handshake/pkg/interfaces/config"
	"github.com/weisyn/handshake/pkg/types"
)

// 数据目录下的默认文件布局
const (
	keysDirName       = "keys"
	chainKeyFileName  = "chain.key"
	libp2pKeyFileName = "libp2p.key"
	badgerDirName     = "badger"
)

// Provider 实现配置提供者接口
type Provider struct {
	appConfig *types.AppConfig
}

// NewProvider 创建配置提供者
func NewProvider(appConfig *types.AppConfig) config.Provider {
	if appConfig == nil {
		appConfig = &types.AppConfig{}
	}
	return &Provider{
		appConfig: appConfig,
	}
}

// LoadAppConfig 从JSON文件加载应用配置
// path 为空时返回空配置（全部使用默认值）
func LoadAppConfig(path string) (*types.AppConfig, error) {
	if path == "" {
		return &types.AppConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	appConfig, err := ParseAppConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return appConfig, nil
}

// ParseAppConfig 解析JSON配置内容
func ParseAppConfig(data []byte) (*types.AppConfig, error) {
	var appConfig types.AppConfig
	if err := json.Unmarshal(data, &appConfig); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return &appConfig, nil
}

// GetAppConfig 获取原始应用配置
func (p *Provider) GetAppConfig() *types.AppConfig {
	return p.appConfig
}

// GetNode 获取节点网络配置
func (p *Provider) GetNode() *node.NodeOptions {
	nodeOptions := node.New(p.appConfig.Node).GetOptions()

	// 配置了数据目录时，libp2p 身份默认持久化到 <data_dir>/keys/libp2p.key
	if nodeOptions.Host.Identity.KeyFile == "" {
		if dir := p.dataDir(); dir != "" {
			nodeOptions.Host.Identity.KeyFile = filepath.Join(dir, keysDirName, libp2pKeyFileName)
		}
	}
	return nodeOptions
}

// GetHandshake 获取握手协议配置
func (p *Provider) GetHandshake() *handshake.HandshakeOptions {
	options := handshake.New(p.appConfig.Handshake).GetOptions()

	// 配置了数据目录时，链身份默认持久化到 <data_dir>/keys/chain.key
	if options.ChainKeyFile == "" {
		if dir := p.dataDir(); dir != "" {
			options.ChainKeyFile = filepath.Join(dir, keysDirName, chainKeyFileName)
		}
	}
	return options
}

// GetStorage 获取状态存储配置
//
// 路径规则：
// - storage.data_root 已配置：{data_root}/badger
// - 否则 data_dir 已配置：{data_dir}/badger
// - 两者都未配置且未显式指定引擎：使用内存存储（临时节点）
func (p *Provider) GetStorage() *badger.BadgerOptions {
	userStorage := p.appConfig.Storage
	options := badger.New(userStorage).GetOptions()

	dataRootSet := userStorage != nil && userStorage.DataRoot != nil
	engineSet := userStorage != nil && userStorage.Engine != nil

	if !dataRootSet {
		if dir := p.dataDir(); dir != "" {
			options.Path = filepath.Join(dir, badgerDirName)
		} else if !engineSet {
			options.Engine = badger.EngineMemory
		}
	}
	return options
}

// GetAPI 获取调试API配置
func (p *Provider) GetAPI() *api.APIOptions {
	return api.New(p.appConfig.API).GetOptions()
}

// GetLog 获取日志配置
func (p *Provider) GetLog() *log.LogOptions {
	return log.New(p.appConfig.Log).GetOptions()
}

// dataDir 返回配置的数据目录，未配置时为空
func (p *Provider) dataDir() string {
	if p.appConfig.DataDir == nil {
		return ""
	}
	return *p.appConfig.DataDir
}
