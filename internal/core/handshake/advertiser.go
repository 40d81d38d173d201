package handshake

import (
	"fmt"

	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"

	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/node"
)

// Advertiser 决定本节点在 Ack 中签名公布的 underlay
type Advertiser interface {
	// Underlay 根据对端观察到的本节点地址选择要公布的地址
	Underlay(observed ma.Multiaddr) (ma.Multiaddr, error)
}

// HostAdvertiser 基于宿主机地址的公布策略
//
// 选择顺序：
//  1. 配置的公告地址
//  2. 首个可路由的监听地址（优先非回环）
//  3. 对端观察到的地址
type HostAdvertiser struct {
	host     node.Host
	announce ma.Multiaddr
}

// NewHostAdvertiser 创建地址公布器，announce 为空表示未配置
func NewHostAdvertiser(host node.Host, announce string) (*HostAdvertiser, error) {
	a := &HostAdvertiser{host: host}
	if announce != "" {
		addr, err := ma.NewMultiaddr(announce)
		if err != nil {
			return nil, fmt.Errorf("invalid announce address %q: %w", announce, err)
		}
		a.announce = addr
	}
	return a, nil
}

// Underlay 实现 Advertiser
func (a *HostAdvertiser) Underlay(observed ma.Multiaddr) (ma.Multiaddr, error) {
	if a.announce != nil {
		return buildFullMA(a.announce, a.host.ID())
	}

	if addr := pickListenAddr(a.host.ListenAddrs()); addr != nil {
		return buildFullMA(addr, a.host.ID())
	}

	if observed != nil && len(observed.Bytes()) > 0 {
		return observed, nil
	}
	return nil, ErrNoUnderlay
}

// pickListenAddr 跳过未指定地址，优先返回非回环地址
func pickListenAddr(addrs []ma.Multiaddr) ma.Multiaddr {
	var loopback ma.Multiaddr
	for _, addr := range addrs {
		if manet.IsIPUnspecified(addr) {
			continue
		}
		if manet.IsIPLoopback(addr) {
			if loopback == nil {
				loopback = addr
			}
			continue
		}
		return addr
	}
	return loopback
}

// StaticAdvertiser 总是公布固定地址
type StaticAdvertiser struct {
	Addr ma.Multiaddr
}

// Underlay 实现 Advertiser
func (a StaticAdvertiser) Underlay(ma.Multiaddr) (ma.Multiaddr, error) {
	if a.Addr == nil {
		return nil, ErrNoUnderlay
	}
	return a.Addr, nil
}
