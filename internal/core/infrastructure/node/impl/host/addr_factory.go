package host

// 本文件实现地址公告（AddrsFactory）：
// - 配置了公告地址时，Host 仅对外通告该地址；
// - 否则剔除未指定地址（0.0.0.0 / ::），其余原样保留；
// - 过滤后为空时回退为原始地址集合。

import (
	"fmt"

	libp2p "github.com/libp2p/go-libp2p"
	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"

	nodeconfig "github.com/weisyn/handshake/internal/config/node"
)

// withAddressFactoryByConfig 返回用于过滤公告地址的 libp2p 选项
func withAddressFactoryByConfig(cfg *nodeconfig.NodeOptions) ([]libp2p.Option, error) {
	var announce ma.Multiaddr
	if cfg != nil && cfg.Host.AnnounceAddress != "" {
		m, err := ma.NewMultiaddr(cfg.Host.AnnounceAddress)
		if err != nil {
			return nil, fmt.Errorf("公告地址无效 %q: %w", cfg.Host.AnnounceAddress, err)
		}
		announce = m
	}
	return []libp2p.Option{libp2p.AddrsFactory(func(in []ma.Multiaddr) []ma.Multiaddr {
		return filterAnnounceAddrs(in, announce)
	})}, nil
}

// filterAnnounceAddrs 计算对外通告的地址集合
func filterAnnounceAddrs(in []ma.Multiaddr, announce ma.Multiaddr) []ma.Multiaddr {
	if announce != nil {
		return []ma.Multiaddr{announce}
	}
	out := make([]ma.Multiaddr, 0, len(in))
	for _, a := range in {
		if manet.IsIPUnspecified(a) {
			continue
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return in
	}
	return out
}
