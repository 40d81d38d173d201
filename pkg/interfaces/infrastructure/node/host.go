package node

// Package node 定义握手协议所需的最小 节点网络 公共接口
// 设计目标：
// - 仅暴露握手需要的能力（拨号连通、开流、入站流分派、本地地址）
// - 无生命周期方法：生命周期由实现内部通过 fx 管理
// - 稳定适配层：对 libp2p 做最薄适配，避免实现细节泄漏

import (
	"context"
	"io"
	"time"

	peer "github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// RawStream 最小流抽象（对底层 libp2p stream 的收敛）
// 说明：
// - 包含握手需要的读/写/半关闭/复位/截止时间设置能力
// - RemotePeer/RemoteMultiaddr 用于回报对端的 observed underlay
type RawStream interface {
	io.Reader
	io.Writer
	Close() error
	CloseWrite() error
	Reset() error
	SetDeadline(t time.Time) error

	// RemotePeer 返回对端 PeerID
	RemotePeer() peer.ID

	// RemoteMultiaddr 返回本连接上观察到的对端地址
	RemoteMultiaddr() ma.Multiaddr
}

// StreamHandler 入站流处理器签名
// 参数：
//   - ctx: 处理上下文（取消/超时）
//   - remote: 对端 PeerID
//   - s: 入站 RawStream
type StreamHandler func(ctx context.Context, remote peer.ID, s RawStream)

// Host 面向握手协议的最小宿主机接口
type Host interface {
	// Connect 拨号并确保与目标节点的连通性（幂等）
	Connect(ctx context.Context, info peer.AddrInfo) error

	// NewStream 打开出站流
	// 说明：
	// - 协议ID由调用方决定（含版本），节点网络 仅负责通道
	// - 对端不支持该协议时返回的错误满足 errors.Is(err, ErrProtocolNotSupported)
	NewStream(ctx context.Context, to peer.ID, protocolID string) (RawStream, error)

	// RegisterStreamHandler 为给定协议注册入站处理器
	RegisterStreamHandler(protocolID string, h StreamHandler)

	// UnregisterStreamHandler 取消协议入站处理器
	UnregisterStreamHandler(protocolID string)

	// ID 返回本地 PeerID
	ID() peer.ID

	// ListenAddrs 返回本地监听地址（不含 /p2p 后缀）
	ListenAddrs() []ma.Multiaddr

	// Notify 注册断连回调，用于清理按对端维护的状态
	Notify(onDisconnected func(peer.ID))
}
