package handshake

import "time"

// 握手默认配置值
const (
	// defaultNetworkID 主网网络ID
	defaultNetworkID uint64 = 1

	defaultFullNode       = true
	defaultWelcomeMessage = ""
	defaultNoncePolicy    = NoncePolicyZero

	// defaultValidateOverlay 默认校验对端overlay，关闭时接受未经验证的overlay声明
	defaultValidateOverlay = true

	// defaultTimeout 单次握手（开流到Ack）超时
	defaultTimeout = 15 * time.Second

	// defaultMaxMessageSize 单条握手消息上限
	defaultMaxMessageSize = 4096

	// defaultMaxTrackedPeers 入站去重集合容量
	defaultMaxTrackedPeers = 10000
)
