package host

import (
	libp2p "github.com/libp2p/go-libp2p"
	libp2pquic "github.com/libp2p/go-libp2p/p2p/transport/quic"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"

	nodeconfig "github.com/weisyn/handshake/internal/config/node"
)

// 传输层：
// - 按配置启用 TCP / QUIC；
// - 两者均未启用时回退 libp2p 默认传输组合。

// withTransportOptions 根据配置构建传输层选项
func withTransportOptions(cfg *nodeconfig.NodeOptions) []libp2p.Option {
	if cfg == nil {
		return []libp2p.Option{libp2p.DefaultTransports}
	}
	tr := cfg.Host.Transport
	var opts []libp2p.Option

	if tr.EnableTCP {
		opts = append(opts, libp2p.Transport(tcp.NewTCPTransport, tcp.WithMetrics()))
	}
	if tr.EnableQUIC {
		opts = append(opts, libp2p.Transport(libp2pquic.NewTransport))
	}

	if len(opts) == 0 {
		return []libp2p.Option{libp2p.DefaultTransports}
	}
	return opts
}
