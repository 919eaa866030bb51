package state

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	testLen := 100
	ready := make(chan struct{}, testLen)
	wg := sync.WaitGroup{}
	count := atomic.Uint64{}
	for i := 0; i < testLen; i++ {
		ch := make(chan interface{}, 1)
		bus.Subscribe(BlockHashReceived, ch)
		wg.Add(1)
		go func() {
			defer wg.Done()
			ready <- struct{}{}
			result := <-ch
			assert.Equal(t, BlockHashEvent{Hash: "00ff", Height: 1}, result)
			count.Add(1)
		}()
	}
	for i := 0; i < testLen; i++ {
		<-ready
	}
	bus.Publish(BlockHashReceived, BlockHashEvent{Hash: "00ff", Height: 1})
	wg.Wait()
	assert.Equal(t, uint64(testLen), count.Load())
	assert.Equal(t, testLen, bus.SubscriberCount(BlockHashReceived))
}

func TestEventBusDropsFullSubscriber(t *testing.T) {
	bus := NewEventBus()
	full := make(chan interface{})
	buffered := make(chan interface{}, 1)
	bus.Subscribe(DepositClaimed, full)
	bus.Subscribe(DepositClaimed, buffered)

	bus.Publish(DepositClaimed, DepositClaimedEvent{Identifier: "a:0"})

	assert.Equal(t, 1, bus.SubscriberCount(DepositClaimed))
	assert.Equal(t, DepositClaimedEvent{Identifier: "a:0"}, <-buffered)
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	a := make(chan interface{}, 1)
	b := make(chan interface{}, 1)
	bus.Subscribe(WithdrawalResolved, a)
	bus.Subscribe(WithdrawalResolved, b)

	bus.Unsubscribe(WithdrawalResolved, a)
	assert.Equal(t, 1, bus.SubscriberCount(WithdrawalResolved))
	bus.Unsubscribe(WithdrawalResolved, b)
	assert.Equal(t, 0, bus.SubscriberCount(WithdrawalResolved))

	// publishing with no subscribers is a no-op
	bus.Publish(WithdrawalResolved, nil)
	assert.Equal(t, "EventUnknown", EventType(42).String())
}
