package state

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

type EventType int

const (
	BLOCK_HASH_CHAN_LENGTH = 10
)

const (
	EventUnknown EventType = iota
	BlockHashReceived
	DepositClaimed
	WithdrawalResolved
)

func (e EventType) String() string {
	names := [...]string{"EventUnknown", "BlockHashReceived", "DepositClaimed", "WithdrawalResolved"}
	if int(e) < 0 || int(e) >= len(names) {
		return names[EventUnknown]
	}
	return names[e]
}

// EventBus fans out events to subscribed channels. Publishing never blocks:
// a subscriber that cannot take the event is dropped.
type EventBus struct {
	subscribers map[EventType][]chan interface{}
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]chan interface{}),
	}
}

func (eb *EventBus) Subscribe(eventType EventType, ch chan interface{}) {
	if ch == nil {
		panic("channel == nil")
	}
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
}

func (eb *EventBus) Publish(eventType EventType, data interface{}) {
	eb.mu.RLock()
	subscribers, ok := eb.subscribers[eventType]
	if !ok {
		eb.mu.RUnlock()
		return
	}
	originLen := len(subscribers)
	removeIndexes := make(map[int]bool)
	for i := 0; i < originLen; i++ {
		select {
		case subscribers[i] <- data:
		default:
			removeIndexes[i] = true
		}
	}
	eb.mu.RUnlock()

	if len(removeIndexes) == 0 {
		return
	}
	log.Warnf("EventBus dropping %d slow subscriber(s) of %s", len(removeIndexes), eventType)

	eb.mu.Lock()
	defer eb.mu.Unlock()
	// the list changed in between, leave it to the next publish
	if originLen != len(eb.subscribers[eventType]) {
		return
	}
	var kept []chan interface{}
	for index, ch := range eb.subscribers[eventType] {
		if !removeIndexes[index] {
			kept = append(kept, ch)
		}
	}
	eb.subscribers[eventType] = kept
}

func (eb *EventBus) Unsubscribe(eventType EventType, ch chan interface{}) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subscribers, ok := eb.subscribers[eventType]
	if !ok {
		return
	}
	for i, subscriber := range subscribers {
		if subscriber == ch {
			eb.subscribers[eventType] = append(subscribers[:i:i], subscribers[i+1:]...)
			break
		}
	}
	if len(eb.subscribers[eventType]) == 0 {
		delete(eb.subscribers, eventType)
	}
}

// SubscriberCount reports how many channels listen for eventType
func (eb *EventBus) SubscriberCount(eventType EventType) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers[eventType])
}
