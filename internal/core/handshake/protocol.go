package handshake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/weisyn/handshake/pkg/constants/events"
	"github.com/weisyn/handshake/pkg/constants/protocols"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/node"
)

// DefaultTimeout 单次握手默认超时
const DefaultTimeout = 15 * time.Second

// Protocol 将握手状态机挂接到节点网络
// 负责入站流分派、出站拨号、超时与事件发布
type Protocol struct {
	host    node.Host
	service *Service
	bus     event.EventBus // 可为 nil
	logger  log.Logger
	timeout time.Duration

	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	started    bool
	wg         sync.WaitGroup
	notifyOnce sync.Once
}

// NewProtocol 创建协议挂接层，timeout <= 0 时使用 DefaultTimeout
func NewProtocol(host node.Host, service *Service, bus event.EventBus, logger log.Logger, timeout time.Duration) *Protocol {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Protocol{
		host:    host,
		service: service,
		bus:     bus,
		logger:  logger,
		timeout: timeout,
	}
}

// Start 注册入站处理器与断连回调
func (p *Protocol) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.started = true

	p.host.RegisterStreamHandler(protocols.ProtocolHandshake, p.handleStream)
	// 宿主机不支持注销回调，只注册一次
	p.notifyOnce.Do(func() { p.host.Notify(p.disconnected) })
	p.logger.Infof("握手协议已注册: %s", protocols.ProtocolHandshake)
}

// Stop 取消入站处理器并中止进行中的握手
func (p *Protocol) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.host.UnregisterStreamHandler(protocols.ProtocolHandshake)
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
}

// Connect 拨号目标地址并以发起方身份完成握手
// addr 必须包含 /p2p/<peer> 后缀
func (p *Protocol) Connect(ctx context.Context, addr ma.Multiaddr) (*Info, error) {
	ai, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid peer address %s: %w", addr, err)
	}
	if ai.ID == p.host.ID() {
		return nil, fmt.Errorf("refusing to handshake with self (%s)", ai.ID)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	info, err := p.connect(ctx, addr, *ai)
	if err != nil {
		p.publishFailure(ai.ID, RoleInitiator, err)
		return nil, err
	}
	p.publishVerified(info)
	return info, nil
}

func (p *Protocol) connect(ctx context.Context, addr ma.Multiaddr, ai peer.AddrInfo) (*Info, error) {
	if err := p.host.Connect(ctx, ai); err != nil {
		return nil, newError(KindTransport, "connect", ai.ID, err)
	}

	stream, err := p.host.NewStream(ctx, ai.ID, protocols.ProtocolHandshake)
	if err != nil {
		if errors.Is(err, node.ErrProtocolNotSupported) {
			return nil, newError(KindTransport, "open stream", ai.ID, fmt.Errorf("%w: %v", ErrUnsupportedProtocol, err))
		}
		return nil, newError(KindTransport, "open stream", ai.ID, err)
	}

	return p.service.Handshake(ctx, stream, addr, ai.ID)
}

// ConnectAll 并发拨号一组地址，返回成功握手的对端信息
// 单个地址失败只记录日志
func (p *Protocol) ConnectAll(ctx context.Context, addrs []string) []*Info {
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		infos []*Info
	)
	for _, raw := range addrs {
		addr, err := ma.NewMultiaddr(raw)
		if err != nil {
			p.logger.Warnf("跳过无效的引导地址 %q: %v", raw, err)
			continue
		}
		wg.Add(1)
		go func(addr ma.Multiaddr) {
			defer wg.Done()
			info, err := p.Connect(ctx, addr)
			if err != nil {
				p.logger.Warnf("引导节点握手失败 %s: %v", addr, err)
				return
			}
			mu.Lock()
			infos = append(infos, info)
			mu.Unlock()
		}(addr)
	}
	wg.Wait()
	return infos
}

// Bootstrap 在后台拨号引导节点，Stop 时取消
func (p *Protocol) Bootstrap(addrs []string) {
	if len(addrs) == 0 {
		return
	}
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	ctx := p.ctx
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		infos := p.ConnectAll(ctx, addrs)
		p.logger.Infof("引导完成: %d/%d 个节点握手成功", len(infos), len(addrs))
	}()
}

// handleStream 处理入站握手流
func (p *Protocol) handleStream(ctx context.Context, remote peer.ID, s node.RawStream) {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		_ = s.Reset()
		return
	}
	base := p.ctx
	p.wg.Add(1)
	p.mu.Unlock()
	defer p.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	stop := context.AfterFunc(base, cancel)
	defer stop()

	info, err := p.service.Handle(ctx, s, s.RemoteMultiaddr(), remote)
	if err != nil {
		p.publishFailure(remote, RoleResponder, err)
		return
	}
	p.publishVerified(info)
}

func (p *Protocol) disconnected(id peer.ID) {
	p.service.Disconnected(id)
	if p.bus != nil {
		p.bus.Publish(events.EventTypePeerDisconnected, id)
	}
}

func (p *Protocol) publishVerified(info *Info) {
	p.logger.Infof("握手成功: peer=%s overlay=%s%s", info.Peer, info.Address.Overlay(), info.LightString())
	if info.WelcomeMessage != "" {
		p.logger.Debugf("对端欢迎消息: %q", info.WelcomeMessage)
	}
	if p.bus != nil {
		p.bus.Publish(events.EventTypePeerVerified, *info)
	}
}

func (p *Protocol) publishFailure(id peer.ID, role Role, err error) {
	if errors.Is(err, ErrHandshakeDuplicate) {
		p.logger.Debugf("重复握手: peer=%s", id)
	} else {
		p.logger.Warnf("握手失败: peer=%s role=%s err=%v", id, role, err)
	}
	if p.bus != nil {
		f := Failure{Peer: id, Role: role, Err: err}
		var he *Error
		if errors.As(err, &he) {
			f.Kind = he.Kind
		}
		p.bus.Publish(events.EventTypePeerFailed, f)
	}
}

// Service 底层握手状态机
func (p *Protocol) Service() *Service { return p.service }
