package host

import (
	libp2p "github.com/libp2p/go-libp2p"
	lpyamux "github.com/libp2p/go-libp2p/p2p/muxer/yamux"

	nodeconfig "github.com/weisyn/handshake/internal/config/node"
)

// withMuxerOptions 根据配置构建多路复用器选项
// 启用 yamux 时以 libp2p 默认的 yamux 配置为基础，保持握手流的默认窗口与超时
func withMuxerOptions(cfg *nodeconfig.NodeOptions) []libp2p.Option {
	if cfg == nil || !cfg.Host.Muxer.EnableYamux {
		return []libp2p.Option{libp2p.DefaultMuxers}
	}

	config := *lpyamux.DefaultTransport.Config()
	transport := (*lpyamux.Transport)(&config)

	return []libp2p.Option{libp2p.Muxer(lpyamux.ID, transport)}
}
