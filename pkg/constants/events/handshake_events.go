// Package events 提供跨组件事件类型常量定义
//
// 命名规范：domain.category.action
//
// 使用方式：
//
//	eventBus.Subscribe(events.EventTypePeerVerified, handler)
//	eventBus.Publish(events.EventTypePeerFailed, failure)
package events

import (
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/event"
)

// EventType 全局事件类型别名，兼容标准事件接口
type EventType = event.EventType

// 握手事件
const (
	// EventTypePeerVerified 对端地址通过握手验证
	// 负载：handshake.Info（值类型）
	EventTypePeerVerified EventType = "handshake.peer.verified"

	// EventTypePeerFailed 握手失败
	// 负载：handshake.Failure（值类型）
	EventTypePeerFailed EventType = "handshake.peer.failed"

	// EventTypePeerDisconnected 已握手对端的最后一条连接断开
	// 负载：peer.ID
	EventTypePeerDisconnected EventType = "handshake.peer.disconnected"
)
