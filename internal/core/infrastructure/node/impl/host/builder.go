package host

// 本文件负责构建 libp2p Host，聚合传输、安全、复用、连接管理与身份等选项。
// 仅做装配，不包含握手逻辑。
//
// 装配顺序：Transports → Security → Muxers → ConnManager → Identity → AddrsFactory → ListenAddrs → Extra。

import (
	libp2p "github.com/libp2p/go-libp2p"
	lphost "github.com/libp2p/go-libp2p/core/host"
	ma "github.com/multiformats/go-multiaddr"

	nodeconfig "github.com/weisyn/handshake/internal/config/node"
)

// fallbackListenAddresses 未配置监听地址时使用的随机端口地址
var fallbackListenAddresses = []string{
	"/ip4/0.0.0.0/tcp/0",
	"/ip4/0.0.0.0/udp/0/quic-v1",
}

// newHost 根据配置装配 libp2p Host
func newHost(cfg *nodeconfig.NodeOptions, extra ...libp2p.Option) (lphost.Host, error) {
	var opts []libp2p.Option
	opts = append(opts, withTransportOptions(cfg)...)
	opts = append(opts, withSecurityOptions(cfg)...)
	opts = append(opts, withMuxerOptions(cfg)...)
	opts = append(opts, withConnectionManagerOptions(cfg)...)

	identity, err := withIdentityOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, identity...)

	announce, err := withAddressFactoryByConfig(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, announce...)

	if cfg == nil || len(cfg.Host.ListenAddresses) == 0 {
		opts = append(opts, libp2p.ListenAddrStrings(fallbackListenAddresses...))
	} else {
		opts = append(opts, libp2p.ListenAddrStrings(enrichListenAddresses(cfg.Host.ListenAddresses, cfg)...))
	}

	opts = append(opts, extra...)
	return libp2p.New(opts...)
}

// enrichListenAddresses 在启用/禁用传输时调整监听地址
//   - 启用 QUIC 时为每个 TCP 地址补全同端口的 quic-v1 地址
//   - 未启用 QUIC 时剔除 quic 地址，避免监听失败
func enrichListenAddresses(base []string, cfg *nodeconfig.NodeOptions) []string {
	hasQUIC := cfg != nil && cfg.Host.Transport.EnableQUIC

	existing := make(map[string]struct{}, len(base))
	out := make([]string, 0, len(base)*2)
	for _, s := range base {
		m, err := ma.NewMultiaddr(s)
		if err != nil {
			// 非法地址交由 libp2p 报错
			out = append(out, s)
			existing[s] = struct{}{}
			continue
		}
		if _, err := m.ValueForProtocol(ma.P_QUIC_V1); err == nil && !hasQUIC {
			continue
		}
		if _, ok := existing[s]; !ok {
			out = append(out, s)
			existing[s] = struct{}{}
		}
	}

	if !hasQUIC {
		return out
	}

	for _, s := range out {
		m, err := ma.NewMultiaddr(s)
		if err != nil {
			continue
		}
		port, err := m.ValueForProtocol(ma.P_TCP)
		if err != nil {
			continue
		}
		var quicStr string
		if ip4, err := m.ValueForProtocol(ma.P_IP4); err == nil && ip4 != "" {
			quicStr = "/ip4/" + ip4 + "/udp/" + port + "/quic-v1"
		} else if ip6, err := m.ValueForProtocol(ma.P_IP6); err == nil && ip6 != "" {
			quicStr = "/ip6/" + ip6 + "/udp/" + port + "/quic-v1"
		}
		if quicStr == "" {
			continue
		}
		if _, ok := existing[quicStr]; !ok {
			out = append(out, quicStr)
			existing[quicStr] = struct{}{}
		}
	}
	return out
}
