package node

import (
	"time"

	"github.com/weisyn/handshake/pkg/types"
)

// NodeOptions 节点网络配置选项
type NodeOptions struct {
	// 主机配置 - 对应 internal/core/infrastructure/node/impl/host
	Host HostConfig `json:"host"`

	// 连接管理配置
	Connectivity ConnectivityConfig `json:"connectivity"`

	// 启动后主动握手的节点（含 /p2p/<id> 的 multiaddr）
	BootstrapPeers []string `json:"bootstrap_peers"`
}

// HostConfig 主机配置
type HostConfig struct {
	ListenAddresses []string        `json:"listen_addresses"` // 监听地址列表
	AnnounceAddress string          `json:"announce_address"` // 对外公告地址（为空时由监听地址推导）
	Identity        IdentityConfig  `json:"identity"`         // libp2p身份
	Transport       TransportConfig `json:"transport"`        // 传输层
	Security        SecurityConfig  `json:"security"`         // 安全通道
	Muxer           MuxerConfig     `json:"muxer"`            // 多路复用
}

// IdentityConfig libp2p身份配置
type IdentityConfig struct {
	KeyFile string `json:"key_file"` // 私钥文件路径，为空时使用临时身份
}

// TransportConfig 传输层配置
type TransportConfig struct {
	EnableTCP  bool `json:"enable_tcp"`
	EnableQUIC bool `json:"enable_quic"`
}

// SecurityConfig 安全通道配置
type SecurityConfig struct {
	EnableNoise bool `json:"enable_noise"`
	EnableTLS   bool `json:"enable_tls"`
}

// MuxerConfig 多路复用配置
type MuxerConfig struct {
	EnableYamux bool `json:"enable_yamux"`
}

// ConnectivityConfig 连接管理配置
type ConnectivityConfig struct {
	LowWater        int           `json:"low_water"`         // 连接管理低水位
	HighWater       int           `json:"high_water"`        // 连接管理高水位
	GracePeriod     time.Duration `json:"grace_period"`      // 新连接保护期
	DialTimeout     time.Duration `json:"dial_timeout"`      // 拨号超时
	IdleConnTimeout time.Duration `json:"idle_conn_timeout"` // 空闲连接超时
}

// Config 节点网络配置实现
type Config struct {
	options *NodeOptions
}

// New 创建节点网络配置实现
func New(userConfig *types.UserNodeConfig) *Config {
	// 1. 先创建完整的默认配置
	defaultOptions := createDefaultNodeOptions()

	// 2. 如果有用户配置，则转换并覆盖默认配置
	if userConfig != nil {
		convertAndMergeUserConfig(defaultOptions, userConfig)
	}

	return &Config{
		options: defaultOptions,
	}
}

// createDefaultNodeOptions 创建默认节点配置
func createDefaultNodeOptions() *NodeOptions {
	return &NodeOptions{
		Host: HostConfig{
			ListenAddresses: append([]string{}, defaultListenAddresses...), // 复制切片
			Transport:       TransportConfig{EnableTCP: defaultEnableTCP, EnableQUIC: defaultEnableQUIC},
			Security:        SecurityConfig{EnableNoise: defaultEnableNoise, EnableTLS: defaultEnableTLS},
			Muxer:           MuxerConfig{EnableYamux: defaultEnableYamux},
		},
		Connectivity: ConnectivityConfig{
			LowWater:        defaultLowWater,
			HighWater:       defaultHighWater,
			GracePeriod:     defaultGracePeriod,
			DialTimeout:     defaultDialTimeout,
			IdleConnTimeout: defaultIdleConnTimeout,
		},
		BootstrapPeers: []string{},
	}
}

// convertAndMergeUserConfig 将用户配置转换并合并到默认配置中
// 只处理JSON配置文件中实际出现的字段，其他字段使用defaults.go中的默认值
func convertAndMergeUserConfig(opts *NodeOptions, userConfig *types.UserNodeConfig) {
	if userConfig.ListenAddresses != nil {
		opts.Host.ListenAddresses = append([]string{}, userConfig.ListenAddresses...)
	}
	if userConfig.BootstrapPeers != nil {
		opts.BootstrapPeers = append([]string{}, userConfig.BootstrapPeers...)
	}
	if userConfig.AnnounceAddress != nil {
		opts.Host.AnnounceAddress = *userConfig.AnnounceAddress
	}
	if userConfig.IdentityKeyFile != nil {
		opts.Host.Identity.KeyFile = *userConfig.IdentityKeyFile
	}

	if userConfig.EnableQUIC != nil {
		opts.Host.Transport.EnableQUIC = *userConfig.EnableQUIC
	}
	if userConfig.EnableTLS != nil {
		opts.Host.Security.EnableTLS = *userConfig.EnableTLS
	}

	if userConfig.LowWater != nil {
		opts.Connectivity.LowWater = *userConfig.LowWater
	}
	if userConfig.HighWater != nil {
		opts.Connectivity.HighWater = *userConfig.HighWater
	}
	opts.Connectivity.GracePeriod = parseDuration(userConfig.GracePeriod, opts.Connectivity.GracePeriod)
	opts.Connectivity.DialTimeout = parseDuration(userConfig.DialTimeout, opts.Connectivity.DialTimeout)
	opts.Connectivity.IdleConnTimeout = parseDuration(userConfig.IdleConnTimeout, opts.Connectivity.IdleConnTimeout)
}

// parseDuration 解析用户时长字符串，未设置或非法时保留默认值
func parseDuration(value *string, fallback time.Duration) time.Duration {
	if value == nil {
		return fallback
	}
	d, err := time.ParseDuration(*value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetOptions 获取完整的节点网络配置选项
func (c *Config) GetOptions() *NodeOptions {
	return c.options
}

// GetHostConfig 获取主机配置
func (c *Config) GetHostConfig() *HostConfig {
	return &c.options.Host
}

// GetConnectivityConfig 获取连接管理配置
func (c *Config) GetConnectivityConfig() *ConnectivityConfig {
	return &c.options.Connectivity
}
