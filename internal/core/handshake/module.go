package handshake

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/weisyn/handshake/pkg/interfaces/config"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/crypto"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/node"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/storage"
)

// ModuleParams 握手模块依赖
type ModuleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Provider   config.Provider
	Logger     log.Logger
	Signer     crypto.Signer
	Recoverer  crypto.Recoverer
	Host       node.Host
	EventBus   event.EventBus        `optional:"true"`
	Store      storage.KVStore       `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// ModuleOutput 握手模块输出
type ModuleOutput struct {
	fx.Out

	Service  *Service
	Protocol *Protocol
}

// Module 返回握手模块
func Module() fx.Option {
	return fx.Module("handshake",
		fx.Provide(ProvideServices),
		fx.Invoke(func(*Protocol) {}),
	)
}

// ProvideServices 装配握手服务，启动时注册协议并拨号引导节点
func ProvideServices(p ModuleParams) (ModuleOutput, error) {
	logger := p.Logger.With("module", "handshake")
	opts := p.Provider.GetHandshake()

	nonce, err := ResolveNonce(context.Background(), opts, p.Store)
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("确定握手 nonce 失败: %w", err)
	}

	advertiser, err := NewHostAdvertiser(p.Host, p.Provider.GetNode().Host.AnnounceAddress)
	if err != nil {
		return ModuleOutput{}, err
	}

	reg := p.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	service, err := NewService(p.Signer, p.Recoverer, advertiser, Options{
		NetworkID:       opts.NetworkID,
		FullNode:        opts.FullNode,
		Nonce:           nonce,
		WelcomeMessage:  opts.WelcomeMessage,
		ValidateOverlay: opts.ValidateOverlay,
		MaxMessageSize:  opts.MaxMessageSize,
		MaxTrackedPeers: opts.MaxTrackedPeers,
	}, logger, NewMetrics(reg))
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("创建握手服务失败: %w", err)
	}

	protocol := NewProtocol(p.Host, service, p.EventBus, logger, opts.Timeout)
	bootstrap := p.Provider.GetNode().BootstrapPeers

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Infof("本节点 overlay=%s chain=%s network=%d nonce=%s",
				service.Overlay(), service.ChainAddress().Hex(), service.NetworkID(), nonce.String())
			protocol.Start()
			protocol.Bootstrap(bootstrap)
			return nil
		},
		OnStop: func(context.Context) error {
			protocol.Stop()
			return nil
		},
	})

	return ModuleOutput{Service: service, Protocol: protocol}, nil
}
