// Package protocols 提供全局网络协议常量定义
//
// 命名规范：/swarm/<name>/<version>/<stream>
package protocols

// Swarm 握手协议
const (
	// ProtocolHandshakeName 握手协议名
	ProtocolHandshakeName = "handshake"

	// ProtocolHandshakeVersion 握手协议版本
	ProtocolHandshakeVersion = "11.0.0"

	// ProtocolHandshakeStream 握手流名
	ProtocolHandshakeStream = "handshake"

	// ProtocolHandshake 握手协议完整ID
	// 格式：/swarm/handshake/11.0.0/handshake
	ProtocolHandshake = "/swarm/" + ProtocolHandshakeName + "/" + ProtocolHandshakeVersion + "/" + ProtocolHandshakeStream
)
