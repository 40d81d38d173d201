package handshake

import (
	"time"

	"github.com/weisyn/handshake/pkg/types"
)

// nonce 策略
const (
	// NoncePolicyZero 不使用 nonce，overlay 推导时以 32 个零字节代替
	NoncePolicyZero = "zero"

	// NoncePolicyPersistent 首次启动生成随机 nonce 并持久化，重启后复用
	NoncePolicyPersistent = "persistent"
)

// HandshakeOptions 握手协议配置选项
type HandshakeOptions struct {
	NetworkID       uint64        `json:"network_id"`        // 网络ID
	FullNode        bool          `json:"full_node"`         // 是否为全节点
	WelcomeMessage  string        `json:"welcome_message"`   // 欢迎消息
	NoncePolicy     string        `json:"nonce_policy"`      // zero | persistent
	Nonce           string        `json:"nonce"`             // 显式nonce（hex），优先于策略
	ValidateOverlay bool          `json:"validate_overlay"`  // 是否校验对端overlay推导
	Timeout         time.Duration `json:"timeout"`           // 单次握手超时
	MaxMessageSize  int           `json:"max_message_size"`  // 单条消息最大字节数
	MaxTrackedPeers int           `json:"max_tracked_peers"` // 入站去重集合容量
	ChainKeyFile    string        `json:"chain_key_file"`    // 链身份私钥文件，为空时使用临时身份
}

// Config 握手配置实现
type Config struct {
	options *HandshakeOptions
}

// New 创建握手配置实现
func New(userConfig *types.UserHandshakeConfig) *Config {
	defaultOptions := createDefaultHandshakeOptions()

	if userConfig != nil {
		applyUserConfig(defaultOptions, userConfig)
	}

	return &Config{
		options: defaultOptions,
	}
}

// createDefaultHandshakeOptions 创建默认握手配置
func createDefaultHandshakeOptions() *HandshakeOptions {
	return &HandshakeOptions{
		NetworkID:       defaultNetworkID,
		FullNode:        defaultFullNode,
		WelcomeMessage:  defaultWelcomeMessage,
		NoncePolicy:     defaultNoncePolicy,
		ValidateOverlay: defaultValidateOverlay,
		Timeout:         defaultTimeout,
		MaxMessageSize:  defaultMaxMessageSize,
		MaxTrackedPeers: defaultMaxTrackedPeers,
	}
}

// applyUserConfig 应用用户配置覆盖默认值
func applyUserConfig(opts *HandshakeOptions, userConfig *types.UserHandshakeConfig) {
	if userConfig.NetworkID != nil {
		opts.NetworkID = *userConfig.NetworkID
	}
	if userConfig.FullNode != nil {
		opts.FullNode = *userConfig.FullNode
	}
	if userConfig.WelcomeMessage != nil {
		opts.WelcomeMessage = *userConfig.WelcomeMessage
	}
	if userConfig.NoncePolicy != nil {
		switch *userConfig.NoncePolicy {
		case NoncePolicyZero, NoncePolicyPersistent:
			opts.NoncePolicy = *userConfig.NoncePolicy
		}
	}
	if userConfig.Nonce != nil {
		opts.Nonce = *userConfig.Nonce
	}
	if userConfig.ValidateOverlay != nil {
		opts.ValidateOverlay = *userConfig.ValidateOverlay
	}
	if userConfig.Timeout != nil {
		if d, err := time.ParseDuration(*userConfig.Timeout); err == nil && d > 0 {
			opts.Timeout = d
		}
	}
	if userConfig.MaxMessageSize != nil && *userConfig.MaxMessageSize > 0 {
		opts.MaxMessageSize = *userConfig.MaxMessageSize
	}
	if userConfig.MaxTrackedPeers != nil && *userConfig.MaxTrackedPeers > 0 {
		opts.MaxTrackedPeers = *userConfig.MaxTrackedPeers
	}
	if userConfig.ChainKeyFile != nil {
		opts.ChainKeyFile = *userConfig.ChainKeyFile
	}
}

// GetOptions 获取完整的握手配置选项
func (c *Config) GetOptions() *HandshakeOptions {
	return c.options
}
