package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"

	apihttp "github.com/weisyn/handshake/internal/api/http"
	"github.com/weisyn/handshake/internal/app/version"
	config "github.com/weisyn/handshake/internal/config"
	"github.com/weisyn/handshake/internal/core/addressbook"
	"github.com/weisyn/handshake/internal/core/handshake"
	"github.com/weisyn/handshake/internal/core/infrastructure/crypto"
	"github.com/weisyn/handshake/internal/core/infrastructure/event"
	log "github.com/weisyn/handshake/internal/core/infrastructure/log"
	"github.com/weisyn/handshake/internal/core/infrastructure/node"
	"github.com/weisyn/handshake/internal/core/infrastructure/storage"
)

// Framework layers
const (
	// 基础设施层
	LayerInfrastructure = "infrastructure"
	// 通信与数据层
	LayerCommunication = "communication"
	// 业务逻辑层
	LayerBusiness = "business"
	// 应用层
	LayerApplication = "application"
)

// Bootstrap 应用引导程序
type Bootstrap struct {
	opts  *options
	fxApp *fx.App

	// 启动后由 fx.Populate 填充
	service  *handshake.Service
	protocol *handshake.Protocol
	book     *addressbook.Book
	api      *apihttp.Server
}

// NewBootstrap 创建引导程序
func NewBootstrap(opts *options) *Bootstrap {
	return &Bootstrap{opts: opts}
}

// SetupInfrastructureLayer 设置基础设施层模块
func (b *Bootstrap) SetupInfrastructureLayer() []fx.Option {
	return []fx.Option{
		fx.Supply(b.opts.appConfig),
		fx.Supply(fx.Annotated{Name: "version", Target: version.GetVersion()}),
		config.Module(), // 1. 配置(不依赖其他)
		log.Module(),    // 2. 日志(依赖配置)
		crypto.Module(), // 3. 链身份签名(依赖配置)
		metricsModule(), // 4. 指标注册表
	}
}

// SetupCommunicationLayer 设置通信与数据层模块
func (b *Bootstrap) SetupCommunicationLayer() []fx.Option {
	return []fx.Option{
		event.Module(),   // 事件(依赖日志)
		storage.Module(), // 存储(依赖配置)
		node.Module(),    // libp2p 主机，必须先于握手模块启动
	}
}

// SetupBusinessLayer 设置业务逻辑层模块
func (b *Bootstrap) SetupBusinessLayer() []fx.Option {
	return []fx.Option{
		handshake.Module(),   // 握手协议
		addressbook.Module(), // 已验证对端地址簿(订阅握手事件)
	}
}

// SetupApplicationLayer 设置应用层模块
func (b *Bootstrap) SetupApplicationLayer() []fx.Option {
	var modules []fx.Option
	if b.opts.disableAPI {
		fmt.Println("⚠️  调试API已禁用")
	} else {
		modules = append(modules, apihttp.Module())
	}
	return modules
}

// SetupModules 设置所有应用模块
func (b *Bootstrap) SetupModules() []fx.Option {
	var all []fx.Option
	all = append(all, b.SetupInfrastructureLayer()...)
	all = append(all, b.SetupCommunicationLayer()...)
	all = append(all, b.SetupBusinessLayer()...)
	all = append(all, b.SetupApplicationLayer()...)
	return all
}

// CreateFxApp 创建并配置fx应用
func (b *Bootstrap) CreateFxApp() error {
	populate := []interface{}{&b.service, &b.protocol, &b.book}
	if !b.opts.disableAPI {
		populate = append(populate, &b.api)
	}

	appOptions := []fx.Option{
		fx.Options(b.SetupModules()...),
		fx.Options(b.opts.extra...),
		fx.Populate(populate...),
		fx.NopLogger,
	}

	b.fxApp = fx.New(appOptions...)
	if err := b.fxApp.Err(); err != nil {
		return fmt.Errorf("装配模块失败: %w", err)
	}
	return nil
}

// StartApp 启动应用程序
func (b *Bootstrap) StartApp(ctx context.Context) error {
	if err := b.fxApp.Start(ctx); err != nil {
		return fmt.Errorf("启动应用失败: %w", err)
	}
	return nil
}

// StopApp 停止应用程序
func (b *Bootstrap) StopApp(ctx context.Context) error {
	if err := b.fxApp.Stop(ctx); err != nil {
		return fmt.Errorf("停止应用失败: %w", err)
	}
	return nil
}

// metricsModule 提供进程级 Prometheus 注册表
// 同一实例同时作为 Registerer 与 Gatherer，/metrics 只暴露本进程注册的指标
func metricsModule() fx.Option {
	return fx.Module("metrics",
		fx.Provide(
			func() *prometheus.Registry {
				reg := prometheus.NewRegistry()
				reg.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
				return reg
			},
			func(reg *prometheus.Registry) prometheus.Registerer { return reg },
			func(reg *prometheus.Registry) prometheus.Gatherer { return reg },
		),
	)
}

// BootstrapApp 执行完整的引导过程并返回应用实例
func BootstrapApp(options ...Option) (App, error) {
	opts := newOptions(options...)
	bootstrap := NewBootstrap(opts)

	if err := bootstrap.CreateFxApp(); err != nil {
		return nil, err
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := bootstrap.StartApp(startupCtx); err != nil {
		return nil, err
	}

	return &internalApp{bootstrap: bootstrap}, nil
}

// WaitForSignal 等待退出信号
func WaitForSignal() os.Signal {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	return <-signals
}
