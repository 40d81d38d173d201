// Package node provides default configuration values for the libp2p host.
package node

import "time"

// 节点网络默认配置值
const (
	// defaultLowWater 连接管理低水位
	defaultLowWater = 50

	// defaultHighWater 连接管理高水位
	defaultHighWater = 200

	// defaultGracePeriod 新建连接在此期间不会被连接管理器裁剪
	// 需覆盖一次完整握手
	defaultGracePeriod = 20 * time.Second

	// defaultDialTimeout 拨号超时
	defaultDialTimeout = 15 * time.Second

	// defaultIdleConnTimeout 空闲连接超时
	defaultIdleConnTimeout = 5 * time.Minute

	// === 传输协议配置 ===

	defaultEnableTCP  = true
	defaultEnableQUIC = true

	// === 安全与多路复用 ===

	defaultEnableNoise = true
	defaultEnableTLS   = false
	defaultEnableYamux = true
)

// defaultListenAddresses 默认监听地址
var defaultListenAddresses = []string{
	"/ip4/0.0.0.0/tcp/1634",
	"/ip4/0.0.0.0/udp/1634/quic-v1",
}
