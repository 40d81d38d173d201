// Package types provides configuration type definitions.
package types

// AppConfig 应用程序根配置
// 只包含JSON配置文件解析所需的结构，不包含任何内部字段
// 默认值和完整配置结构在 internal/config/*/defaults.go 和 internal/config/*/config.go 中定义
type AppConfig struct {
	// 应用程序基本信息
	AppName *string `json:"app_name,omitempty"` // 应用名称
	DataDir *string `json:"data_dir,omitempty"` // 数据目录路径
	Version *string `json:"version,omitempty"`  // 应用版本

	// 节点网络配置（libp2p 主机）
	Node *UserNodeConfig `json:"node,omitempty"`

	// 握手协议配置 - 对应配置文件中的 handshake 字段
	Handshake *UserHandshakeConfig `json:"handshake,omitempty"`

	// 存储配置
	Storage *UserStorageConfig `json:"storage,omitempty"`

	// 调试API配置
	API *UserAPIConfig `json:"api,omitempty"`

	// 日志配置
	Log *UserLogConfig `json:"log,omitempty"`
}

// UserNodeConfig 用户节点网络配置
// 只包含JSON配置文件中实际出现的字段
type UserNodeConfig struct {
	ListenAddresses []string `json:"listen_addresses,omitempty"` // P2P监听地址列表
	BootstrapPeers  []string `json:"bootstrap_peers,omitempty"`  // 启动后主动握手的节点列表（含 /p2p/<id>）

	EnableQUIC *bool `json:"enable_quic,omitempty"` // 启用QUIC传输
	EnableTLS  *bool `json:"enable_tls,omitempty"`  // 在Noise之外追加TLS安全通道

	// 连接管理
	LowWater        *int    `json:"low_water,omitempty"`         // 连接数低水位
	HighWater       *int    `json:"high_water,omitempty"`        // 连接数高水位
	GracePeriod     *string `json:"grace_period,omitempty"`      // 新连接保护期，如 "20s"
	DialTimeout     *string `json:"dial_timeout,omitempty"`      // 拨号超时
	IdleConnTimeout *string `json:"idle_conn_timeout,omitempty"` // 空闲连接超时
	AnnounceAddress *string `json:"announce_address,omitempty"`  // 对外公告的underlay地址
	IdentityKeyFile *string `json:"identity_key_file,omitempty"` // libp2p身份私钥文件路径
}

// UserHandshakeConfig 用户握手配置
// 只包含JSON配置文件中实际出现的字段
type UserHandshakeConfig struct {
	NetworkID       *uint64 `json:"network_id,omitempty"`        // 网络ID
	FullNode        *bool   `json:"full_node,omitempty"`         // 是否为全节点
	WelcomeMessage  *string `json:"welcome_message,omitempty"`   // 欢迎消息（不超过140字节）
	NoncePolicy     *string `json:"nonce_policy,omitempty"`      // nonce 策略：zero | persistent
	Nonce           *string `json:"nonce,omitempty"`             // 显式指定的32字节nonce（hex）
	ValidateOverlay *bool   `json:"validate_overlay,omitempty"`  // 是否校验对端overlay推导
	Timeout         *string `json:"timeout,omitempty"`           // 单次握手超时，如 "15s"
	MaxMessageSize  *int    `json:"max_message_size,omitempty"`  // 单条消息最大字节数
	MaxTrackedPeers *int    `json:"max_tracked_peers,omitempty"` // 入站去重集合容量
	ChainKeyFile    *string `json:"chain_key_file,omitempty"`    // 链身份（secp256k1）私钥文件
}

// UserAPIConfig 用户API配置
// 只包含JSON配置文件中实际出现的字段
type UserAPIConfig struct {
	HTTPEnabled *bool   `json:"http_enabled,omitempty"` // 是否启用HTTP调试服务（默认true）
	HTTPHost    *string `json:"http_host,omitempty"`    // 监听地址
	HTTPPort    *int    `json:"http_port,omitempty"`    // HTTP监听端口

	WriteRateLimit *float64 `json:"write_rate_limit,omitempty"` // 写接口每秒请求数，0 关闭限流
}

// UserStorageConfig 用户存储配置
type UserStorageConfig struct {
	Engine   *string `json:"engine,omitempty"`    // 存储引擎：badger | memory
	DataRoot *string `json:"data_root,omitempty"` // 数据根目录（data_root）
}

// UserLogConfig 用户日志配置
// 只包含JSON配置文件中实际出现的字段
type UserLogConfig struct {
	Level     *string `json:"level,omitempty"`      // 日志级别：debug, info, warn, error, fatal
	FilePath  *string `json:"file_path,omitempty"`  // 日志文件路径
	ToConsole *bool   `json:"to_console,omitempty"` // 是否同时输出到控制台
}

// 配置辅助函数
// 这些函数帮助创建指针类型的配置值，区分"未设置"和"设置为零值"

// BoolPtr 创建bool指针，用于明确表示用户设置了该值
func BoolPtr(v bool) *bool {
	return &v
}

// IntPtr 创建int指针，用于明确表示用户设置了该值
func IntPtr(v int) *int {
	return &v
}

// StringPtr 创建string指针，用于明确表示用户设置了该值
func StringPtr(v string) *string {
	return &v
}

// UInt64Ptr 创建uint64指针，用于明确表示用户设置了该值
func UInt64Ptr(v uint64) *uint64 {
	return &v
}
