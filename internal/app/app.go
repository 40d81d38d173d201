// Package app 装配并运行握手节点
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/weisyn/handshake/internal/core/addressbook"
	"github.com/weisyn/handshake/internal/core/handshake"
)

// App 节点应用的对外接口
type App interface {
	// Service 本节点握手服务，可读取 overlay 等身份信息
	Service() *handshake.Service

	// Protocol 用于主动拨号
	Protocol() *handshake.Protocol

	// AddressBook 已验证对端
	AddressBook() *addressbook.Book

	// APIAddr 调试API监听地址，未启用时为空
	APIAddr() string

	// Stop 停止应用
	Stop() error

	// Wait 阻塞直到收到退出信号，随后停止应用
	Wait()
}

// internalApp 节点应用的内部实现
type internalApp struct {
	bootstrap *Bootstrap
}

func (a *internalApp) Service() *handshake.Service    { return a.bootstrap.service }
func (a *internalApp) Protocol() *handshake.Protocol  { return a.bootstrap.protocol }
func (a *internalApp) AddressBook() *addressbook.Book { return a.bootstrap.book }

func (a *internalApp) APIAddr() string {
	if a.bootstrap.api == nil {
		return ""
	}
	return a.bootstrap.api.Addr()
}

// Stop 停止应用，留出时间关闭存储
func (a *internalApp) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.bootstrap.StopApp(ctx)
}

// Wait 等待应用收到退出信号
func (a *internalApp) Wait() {
	sig := WaitForSignal()
	fmt.Printf("\n🛑 收到信号 %v，正在优雅退出...\n", sig)
	if err := a.Stop(); err != nil {
		fmt.Printf("⚠️ 停止应用时出错: %v\n", err)
	}
}

// Start 启动节点应用
func Start(appOptions ...Option) (App, error) {
	return BootstrapApp(appOptions...)
}
