package addressbook

import (
	"context"

	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/weisyn/handshake/internal/core/handshake"
	"github.com/weisyn/handshake/pkg/constants/events"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/log"
)

// Subscriber 将握手事件写入地址簿
type Subscriber struct {
	book   *Book
	bus    event.EventBus
	logger log.Logger

	onVerified     func(handshake.Info)
	onDisconnected func(peer.ID)
}

// NewSubscriber 创建事件订阅器
func NewSubscriber(book *Book, bus event.EventBus, logger log.Logger) *Subscriber {
	s := &Subscriber{book: book, bus: bus, logger: logger}
	s.onVerified = func(info handshake.Info) {
		s.book.Put(info)
		s.logger.Debugf("地址簿记录 overlay=%s peer=%s", info.Address.Overlay(), info.Peer)
	}
	s.onDisconnected = func(id peer.ID) {
		s.book.MarkDisconnected(id)
	}
	return s
}

// Start 订阅握手成功与断连事件
func (s *Subscriber) Start() error {
	if err := s.bus.Subscribe(events.EventTypePeerVerified, s.onVerified); err != nil {
		return err
	}
	return s.bus.Subscribe(events.EventTypePeerDisconnected, s.onDisconnected)
}

// Stop 取消订阅
func (s *Subscriber) Stop() error {
	return multierr.Combine(
		s.bus.Unsubscribe(events.EventTypePeerVerified, s.onVerified),
		s.bus.Unsubscribe(events.EventTypePeerDisconnected, s.onDisconnected),
	)
}

// ModuleParams 地址簿模块依赖
type ModuleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	EventBus  event.EventBus
	Service   *handshake.Service
	Logger    log.Logger
}

// Module 返回地址簿模块
func Module() fx.Option {
	return fx.Module("addressbook",
		fx.Provide(ProvideBook),
		fx.Invoke(func(*Book) {}),
	)
}

// ProvideBook 创建地址簿并立即订阅握手事件
// 订阅早于握手模块启动，引导节点的握手结果不会丢失
func ProvideBook(p ModuleParams) (*Book, error) {
	book := New(p.Service.Overlay())
	sub := NewSubscriber(book, p.EventBus, p.Logger.With("module", "addressbook"))
	if err := sub.Start(); err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error { return sub.Stop() },
	})
	return book, nil
}
