package event

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventInterface "github.com/weisyn/handshake/pkg/interfaces/infrastructure/event"
)

const testTopic eventInterface.EventType = "test.topic"

func TestEventBus_Subscribe_ReceivesPublishedArgs(t *testing.T) {
	bus := NewEventBus()

	var got string
	require.NoError(t, bus.Subscribe(testTopic, func(v string) { got = v }))
	assert.True(t, bus.HasCallback(testTopic))

	bus.Publish(testTopic, "payload")

	assert.Equal(t, "payload", got)
}

func TestEventBus_SubscribeAsync_WaitAsyncDrains(t *testing.T) {
	bus := NewEventBus()

	var count atomic.Int32
	require.NoError(t, bus.SubscribeAsync(testTopic, func(n int) { count.Add(int32(n)) }, true))

	for i := 0; i < 10; i++ {
		bus.Publish(testTopic, 1)
	}
	bus.WaitAsync()

	assert.Equal(t, int32(10), count.Load())
}

func TestEventBus_Unsubscribe_StopsDelivery(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	handler := func() { calls++ }
	require.NoError(t, bus.Subscribe(testTopic, handler))
	require.NoError(t, bus.Unsubscribe(testTopic, handler))

	bus.Publish(testTopic)

	assert.Equal(t, 0, calls)
	assert.False(t, bus.HasCallback(testTopic))
}

func TestEventBus_Subscribe_NonFunction_ReturnsError(t *testing.T) {
	bus := NewEventBus()

	assert.Error(t, bus.Subscribe(testTopic, "not a function"))
}
