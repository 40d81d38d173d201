package host

// 本文件提供 Host 运行时生命周期管理：
// - Start：装配并启动 libp2p Host，保护引导节点，启动空闲连接回收
// - Stop：停止回收循环并关闭 Host
// 保持职责单一，仅负责生命周期，不参与握手逻辑。

import (
	"context"
	"fmt"
	"sync"
	"time"

	lphost "github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/multierr"

	nodeconfig "github.com/weisyn/handshake/internal/config/node"
	logiface "github.com/weisyn/handshake/pkg/interfaces/infrastructure/log"
)

// protectTagBootstrap 引导节点的连接保护标签
const protectTagBootstrap = "bootstrap"

// maxIdleSweepInterval 空闲连接扫描的最大间隔
const maxIdleSweepInterval = 30 * time.Second

// Runtime 负责 Host 的创建与关闭
type Runtime struct {
	cfg    *nodeconfig.NodeOptions
	logger logiface.Logger

	mu       sync.RWMutex
	host     lphost.Host
	external bool // host 由外部注入，Stop 时不关闭

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRuntime 创建 Host 运行时，Host 在 Start 时构建
func NewRuntime(cfg *nodeconfig.NodeOptions, logger logiface.Logger) (*Runtime, error) {
	if cfg == nil {
		cfg = nodeconfig.New(nil).GetOptions()
	}
	return &Runtime{cfg: cfg, logger: logger}, nil
}

// NewRuntimeWithHost 使用已存在的 Host 创建运行时（如 mocknet 构建的 Host）
func NewRuntimeWithHost(h lphost.Host, cfg *nodeconfig.NodeOptions, logger logiface.Logger) *Runtime {
	if cfg == nil {
		cfg = nodeconfig.New(nil).GetOptions()
	}
	return &Runtime{cfg: cfg, logger: logger, host: h, external: true}
}

// Start 装配选项并启动 Host
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.host != nil {
		return nil
	}

	h, err := newHost(r.cfg)
	if err != nil {
		return fmt.Errorf("create host: %w", err)
	}
	r.host = h

	if r.logger != nil {
		r.logger.Infof("node host started: id=%s addrs=%v low_water=%d high_water=%d idle_timeout=%s",
			h.ID().String(), h.Addrs(), r.cfg.Connectivity.LowWater, r.cfg.Connectivity.HighWater, r.cfg.Connectivity.IdleConnTimeout)
	}

	// 保护引导节点，避免被连接管理器修剪
	for _, s := range r.cfg.BootstrapPeers {
		m, err := ma.NewMultiaddr(s)
		if err != nil {
			continue
		}
		if info, err := peer.AddrInfoFromP2pAddr(m); err == nil {
			h.ConnManager().Protect(info.ID, protectTagBootstrap)
		}
	}

	if idle := r.cfg.Connectivity.IdleConnTimeout; idle > 0 {
		loopCtx, cancel := context.WithCancel(context.Background())
		r.cancel = cancel
		r.wg.Add(1)
		go r.idleSweepLoop(loopCtx, h, idle)
	}

	return nil
}

// Stop 关闭 Host
func (r *Runtime) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel := r.cancel
	h := r.host
	external := r.external
	r.cancel = nil
	r.host = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()

	var err error
	if h != nil && !external {
		err = multierr.Append(err, h.Close())
		if r.logger != nil {
			r.logger.Infof("node host stopped")
		}
	}
	return err
}

// Host 返回内部 host，未启动时为 nil
func (r *Runtime) Host() lphost.Host {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.host
}

// Config 返回节点配置
func (r *Runtime) Config() *nodeconfig.NodeOptions {
	return r.cfg
}

// GetLogger 返回logger实例
func (r *Runtime) GetLogger() logiface.Logger {
	return r.logger
}

// GetStats 获取运行时统计信息
func (r *Runtime) GetStats() map[string]interface{} {
	h := r.Host()
	stats := map[string]interface{}{
		"host_active": h != nil,
	}
	if h != nil {
		stats["peer_id"] = h.ID().String()
		stats["addresses"] = h.Addrs()
		stats["connected_peers"] = len(h.Network().Peers())
		stats["connections"] = len(h.Network().Conns())
	}
	return stats
}

// idleSweepLoop 周期性关闭无活动流且超过空闲时长的连接
func (r *Runtime) idleSweepLoop(ctx context.Context, h lphost.Host, idle time.Duration) {
	defer r.wg.Done()

	interval := idle / 2
	if interval > maxIdleSweepInterval {
		interval = maxIdleSweepInterval
	}
	if interval <= 0 {
		interval = idle
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			closed := sweepIdleConns(h, idle, time.Now())
			if closed > 0 && r.logger != nil {
				r.logger.Debugf("已关闭 %d 个空闲连接", closed)
			}
		}
	}
}

// sweepIdleConns 关闭空闲连接，返回关闭数量
func sweepIdleConns(h lphost.Host, idle time.Duration, now time.Time) int {
	closed := 0
	cm := h.ConnManager()
	for _, c := range h.Network().Conns() {
		if len(c.GetStreams()) > 0 {
			continue
		}
		if now.Sub(c.Stat().Opened) < idle {
			continue
		}
		if cm != nil && cm.IsProtected(c.RemotePeer(), protectTagBootstrap) {
			continue
		}
		if err := c.Close(); err == nil {
			closed++
		}
	}
	return closed
}
