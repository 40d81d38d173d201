package host

import (
	"time"

	libp2p "github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"

	nodeconfig "github.com/weisyn/handshake/internal/config/node"
)

// 连接管理：通过低/高水位与宽限期定期修剪连接。
// 宽限期需覆盖一次完整握手，否则刚建立的连接可能在握手中途被裁剪。

const (
	fallbackLowWater    = 50
	fallbackHighWater   = 200
	fallbackGracePeriod = 20 * time.Second
)

func withConnectionManagerOptions(cfg *nodeconfig.NodeOptions) []libp2p.Option {
	lowWater, highWater, gracePeriod := fallbackLowWater, fallbackHighWater, fallbackGracePeriod
	if cfg != nil {
		if cfg.Connectivity.LowWater > 0 {
			lowWater = cfg.Connectivity.LowWater
		}
		if cfg.Connectivity.HighWater > 0 {
			highWater = cfg.Connectivity.HighWater
		}
		if cfg.Connectivity.GracePeriod > 0 {
			gracePeriod = cfg.Connectivity.GracePeriod
		}
	}

	cm, err := connmgr.NewConnManager(lowWater, highWater, connmgr.WithGracePeriod(gracePeriod))
	if err != nil {
		// 水位配置非法（low > high）时回退默认值
		cm, _ = connmgr.NewConnManager(fallbackLowWater, fallbackHighWater, connmgr.WithGracePeriod(fallbackGracePeriod))
	}
	return []libp2p.Option{libp2p.ConnectionManager(cm)}
}
