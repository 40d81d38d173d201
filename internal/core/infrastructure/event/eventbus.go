// 基于asaskevich/EventBus的事件总线实现

package event

import (
	evbus "github.com/asaskevich/EventBus"

	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/event"
)

// 确保EventBus实现了接口
var _ event.EventBus = (*EventBus)(nil)

// EventBus 是对 asaskevich/EventBus 的薄封装
// 事件类型在接口层是强类型，底层总线使用字符串主题
type EventBus struct {
	bus evbus.Bus
}

// NewEventBus 创建事件总线
func NewEventBus() *EventBus {
	return &EventBus{bus: evbus.New()}
}

// Subscribe 同步订阅
func (eb *EventBus) Subscribe(eventType event.EventType, handler interface{}) error {
	return eb.bus.Subscribe(string(eventType), handler)
}

// SubscribeAsync 异步订阅
func (eb *EventBus) SubscribeAsync(eventType event.EventType, handler interface{}, transactional bool) error {
	return eb.bus.SubscribeAsync(string(eventType), handler, transactional)
}

// Unsubscribe 取消订阅
func (eb *EventBus) Unsubscribe(eventType event.EventType, handler interface{}) error {
	return eb.bus.Unsubscribe(string(eventType), handler)
}

// Publish 发布事件
func (eb *EventBus) Publish(eventType event.EventType, args ...interface{}) {
	eb.bus.Publish(string(eventType), args...)
}

// HasCallback 检查是否有回调
func (eb *EventBus) HasCallback(eventType event.EventType) bool {
	return eb.bus.HasCallback(string(eventType))
}

// WaitAsync 等待异步处理完成
func (eb *EventBus) WaitAsync() {
	eb.bus.WaitAsync()
}
