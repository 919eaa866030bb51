package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/runesbridge/runes-bridge/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	fail bool
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("nats: connection closed")
	}
	p.msgs = append(p.msgs, published{subject: subject, data: data})
	return nil
}

func (p *fakePublisher) snapshot() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.msgs...)
}

func startForwarder(t *testing.T, publisher Publisher) (*state.EventBus, context.CancelFunc, <-chan struct{}) {
	t.Helper()
	bus := state.NewEventBus()
	f := NewForwarder(bus, publisher, "runes")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.Start(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		return bus.SubscriberCount(state.DepositClaimed) == 1
	}, time.Second, 5*time.Millisecond)
	return bus, cancel, done
}

func TestForwarderPublishesEvents(t *testing.T) {
	pub := &fakePublisher{}
	bus, cancel, done := startForwarder(t, pub)

	bus.Publish(state.BlockHashReceived, state.BlockHashEvent{Hash: "00ab", Height: 840000})
	bus.Publish(state.DepositClaimed, state.DepositClaimedEvent{
		Identifier:      "aa:0",
		TxID:            "aa",
		RuneID:          "840000:1",
		Amount:          "2500",
		StarknetAddress: "0x1",
	})
	bus.Publish(state.WithdrawalResolved, state.WithdrawalResolvedEvent{Identifier: "bb:1", Status: "submitted"})

	require.Eventually(t, func() bool { return len(pub.snapshot()) == 3 }, time.Second, 5*time.Millisecond)
	msgs := pub.snapshot()
	assert.Equal(t, "runes.btc.block", msgs[0].subject)
	assert.JSONEq(t, `{"hash":"00ab","height":840000}`, string(msgs[0].data))
	assert.Equal(t, "runes.deposit.claimed", msgs[1].subject)

	var claimed map[string]interface{}
	require.NoError(t, json.Unmarshal(msgs[1].data, &claimed))
	assert.Equal(t, "aa:0", claimed["identifier"])
	assert.Equal(t, "2500", claimed["amount"])
	assert.Equal(t, "runes.withdrawal.resolved", msgs[2].subject)

	cancel()
	<-done
	assert.Zero(t, bus.SubscriberCount(state.BlockHashReceived))
}

func TestForwarderSurvivesPublishFailure(t *testing.T) {
	pub := &fakePublisher{fail: true}
	bus, cancel, done := startForwarder(t, pub)
	defer func() {
		cancel()
		<-done
	}()

	bus.Publish(state.BlockHashReceived, state.BlockHashEvent{Hash: "00ab", Height: 1})
	time.Sleep(20 * time.Millisecond)

	pub.mu.Lock()
	pub.fail = false
	pub.mu.Unlock()
	bus.Publish(state.BlockHashReceived, state.BlockHashEvent{Hash: "00cd", Height: 2})

	require.Eventually(t, func() bool { return len(pub.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, string(pub.snapshot()[0].data), "00cd")
}

func TestForwarderWithoutPublisher(t *testing.T) {
	f := NewForwarder(state.NewEventBus(), nil, "runes")
	f.forward(state.BlockHashEvent{Hash: "00ab"})
	f.forward("unexpected")

	subject, _ := f.message(state.DepositClaimedEvent{})
	assert.Equal(t, "runes.deposit.claimed", subject)
	subject, _ = f.message(42)
	assert.Empty(t, subject)
}
