package node

// 本文件提供面向握手协议的最小 节点网络 服务适配：实现 pkg/interfaces/infrastructure/node.Host
// 说明：仅负责拨号、开流、入站流注册与断连通知；生命周期由 Runtime 管理。

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	libhost "github.com/libp2p/go-libp2p/core/host"
	libnetwork "github.com/libp2p/go-libp2p/core/network"
	libpeer "github.com/libp2p/go-libp2p/core/peer"
	libprotocol "github.com/libp2p/go-libp2p/core/protocol"
	ma "github.com/multiformats/go-multiaddr"
	msmux "github.com/multiformats/go-multistream"

	hostpkg "github.com/weisyn/handshake/internal/core/infrastructure/node/impl/host"
	logiface "github.com/weisyn/handshake/pkg/interfaces/infrastructure/log"
	nodeiface "github.com/weisyn/handshake/pkg/interfaces/infrastructure/node"
)

// rawStreamAdapter 将 libp2p 的 network.Stream 适配为最小 RawStream
type rawStreamAdapter struct{ s libnetwork.Stream }

func (a *rawStreamAdapter) Read(p []byte) (int, error)    { return a.s.Read(p) }
func (a *rawStreamAdapter) Write(p []byte) (int, error)   { return a.s.Write(p) }
func (a *rawStreamAdapter) Close() error                  { return a.s.Close() }
func (a *rawStreamAdapter) CloseWrite() error             { return a.s.CloseWrite() }
func (a *rawStreamAdapter) Reset() error                  { return a.s.Reset() }
func (a *rawStreamAdapter) SetDeadline(t time.Time) error { return a.s.SetDeadline(t) }
func (a *rawStreamAdapter) RemotePeer() libpeer.ID        { return a.s.Conn().RemotePeer() }
func (a *rawStreamAdapter) RemoteMultiaddr() ma.Multiaddr { return a.s.Conn().RemoteMultiaddr() }

// hostService 实现 node.Host 接口
type hostService struct {
	runtime *hostpkg.Runtime
	logger  logiface.Logger

	mu              sync.Mutex
	pendingHandlers map[string]nodeiface.StreamHandler // Host 启动前注册的协议处理器
	pendingNotifees []func(libpeer.ID)                 // Host 启动前注册的断连回调
}

// newHostService 创建宿主机适配服务
func newHostService(runtime *hostpkg.Runtime) *hostService {
	return &hostService{
		runtime:         runtime,
		logger:          runtime.GetLogger(),
		pendingHandlers: make(map[string]nodeiface.StreamHandler),
	}
}

// NewHostAdapter 将已构建的 libp2p Host 适配为 node.Host
// 主要用于 mocknet 等进程内网络
func NewHostAdapter(h libhost.Host, logger logiface.Logger) nodeiface.Host {
	return newHostService(hostpkg.NewRuntimeWithHost(h, nil, logger))
}

// Connect 确保与目标节点连通（幂等）
func (h *hostService) Connect(ctx context.Context, info libpeer.AddrInfo) error {
	host := h.runtime.Host()
	if host == nil {
		return nodeiface.ErrHostNotStarted
	}
	if host.Network().Connectedness(info.ID) == libnetwork.Connected {
		return nil
	}
	if timeout := h.runtime.Config().Connectivity.DialTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := host.Connect(ctx, info); err != nil {
		return fmt.Errorf("dial %s: %w", info.ID, err)
	}
	return nil
}

// NewStream 打开出站流
// 对端不支持该协议时返回包装了 ErrProtocolNotSupported 的错误
func (h *hostService) NewStream(ctx context.Context, to libpeer.ID, protocolID string) (nodeiface.RawStream, error) {
	host := h.runtime.Host()
	if host == nil {
		return nil, nodeiface.ErrHostNotStarted
	}
	stream, err := host.NewStream(ctx, to, libprotocol.ID(protocolID))
	if err != nil {
		if errors.Is(err, msmux.ErrNotSupported[libprotocol.ID]{}) {
			return nil, fmt.Errorf("%w: %s: %v", nodeiface.ErrProtocolNotSupported, protocolID, err)
		}
		return nil, err
	}
	return &rawStreamAdapter{s: stream}, nil
}

// RegisterStreamHandler 注册入站协议处理器
// Host 尚未启动时延迟到 RegisterPendingHandlers 注册
func (h *hostService) RegisterStreamHandler(protocolID string, handler nodeiface.StreamHandler) {
	host := h.runtime.Host()
	if host == nil {
		h.mu.Lock()
		h.pendingHandlers[protocolID] = handler
		h.mu.Unlock()
		return
	}
	h.setStreamHandler(host, protocolID, handler)
}

// setStreamHandler 在 libp2p 层注册协议处理器
func (h *hostService) setStreamHandler(host libhost.Host, protocolID string, handler nodeiface.StreamHandler) {
	host.SetStreamHandler(libprotocol.ID(protocolID), func(s libnetwork.Stream) {
		if h.logger != nil {
			h.logger.Debugf("收到协议流: %s, 来自: %s", protocolID, s.Conn().RemotePeer())
		}
		// 使用无派生的上下文；超时由上层 handler 管理
		handler(context.Background(), s.Conn().RemotePeer(), &rawStreamAdapter{s: s})
	})
	if h.logger != nil {
		h.logger.Debugf("已注册协议: %s", protocolID)
	}
}

// UnregisterStreamHandler 取消入站协议处理器
func (h *hostService) UnregisterStreamHandler(protocolID string) {
	h.mu.Lock()
	delete(h.pendingHandlers, protocolID)
	h.mu.Unlock()

	if host := h.runtime.Host(); host != nil {
		host.RemoveStreamHandler(libprotocol.ID(protocolID))
	}
}

// ID 返回本地 PeerID
func (h *hostService) ID() libpeer.ID {
	host := h.runtime.Host()
	if host == nil {
		return ""
	}
	return host.ID()
}

// ListenAddrs 返回对外可达地址
func (h *hostService) ListenAddrs() []ma.Multiaddr {
	host := h.runtime.Host()
	if host == nil {
		return nil
	}
	return host.Addrs()
}

// Notify 注册断连回调
// 仅在与该节点的最后一条连接断开时回调
func (h *hostService) Notify(onDisconnected func(libpeer.ID)) {
	host := h.runtime.Host()
	if host == nil {
		h.mu.Lock()
		h.pendingNotifees = append(h.pendingNotifees, onDisconnected)
		h.mu.Unlock()
		return
	}
	h.notify(host, onDisconnected)
}

func (h *hostService) notify(host libhost.Host, onDisconnected func(libpeer.ID)) {
	host.Network().Notify(&libnetwork.NotifyBundle{
		DisconnectedF: func(n libnetwork.Network, c libnetwork.Conn) {
			if n.Connectedness(c.RemotePeer()) != libnetwork.Connected {
				onDisconnected(c.RemotePeer())
			}
		},
	})
}

// RegisterPendingHandlers 注册 Host 启动前保存的协议处理器与断连回调
func (h *hostService) RegisterPendingHandlers() {
	host := h.runtime.Host()
	if host == nil {
		return
	}

	h.mu.Lock()
	handlers := h.pendingHandlers
	notifees := h.pendingNotifees
	h.pendingHandlers = make(map[string]nodeiface.StreamHandler)
	h.pendingNotifees = nil
	h.mu.Unlock()

	for protocolID, handler := range handlers {
		h.setStreamHandler(host, protocolID, handler)
	}
	for _, fn := range notifees {
		h.notify(host, fn)
	}

	if h.logger != nil && len(handlers)+len(notifees) > 0 {
		h.logger.Infof("已注册延迟的协议处理器 %d 个，断连回调 %d 个", len(handlers), len(notifees))
	}
}
