package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/runesbridge/runes-bridge/internal/metrics"
	"github.com/runesbridge/runes-bridge/internal/state"
	log "github.com/sirupsen/logrus"
)

const (
	connectTimeout = 10 * time.Second
	reconnectWait  = 5 * time.Second
	eventChanSize  = 64
)

// Publisher is the part of a NATS connection the forwarder needs
type Publisher interface {
	Publish(subject string, data []byte) error
}

type blockMessage struct {
	Hash   string `json:"hash"`
	Height int32  `json:"height"`
}

type depositClaimedMessage struct {
	Identifier      string `json:"identifier"`
	TxID            string `json:"tx_id"`
	Vout            uint32 `json:"vout"`
	RuneID          string `json:"rune_id"`
	Amount          string `json:"amount"`
	StarknetAddress string `json:"starknet_address"`
}

type withdrawalResolvedMessage struct {
	Identifier string `json:"identifier"`
	Status     string `json:"status"`
}

// Forwarder relays bus events to NATS subjects under a common prefix.
// Without a publisher the events are only logged.
type Forwarder struct {
	bus       *state.EventBus
	publisher Publisher
	prefix    string
	ch        chan interface{}
}

// Connect dials NATS and keeps reconnecting forever
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("runes-bridge"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warnf("NATS disconnected: %v", err)
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("NATS reconnected to %s", nc.ConnectedUrl())
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	metrics.NATSConnectionStatus.Set(1)
	return conn, nil
}

func NewForwarder(bus *state.EventBus, publisher Publisher, prefix string) *Forwarder {
	return &Forwarder{
		bus:       bus,
		publisher: publisher,
		prefix:    prefix,
		ch:        make(chan interface{}, eventChanSize),
	}
}

// Start forwards events until ctx is cancelled
func (f *Forwarder) Start(ctx context.Context) {
	for _, eventType := range []state.EventType{state.BlockHashReceived, state.DepositClaimed, state.WithdrawalResolved} {
		f.bus.Subscribe(eventType, f.ch)
	}
	defer func() {
		for _, eventType := range []state.EventType{state.BlockHashReceived, state.DepositClaimed, state.WithdrawalResolved} {
			f.bus.Unsubscribe(eventType, f.ch)
		}
	}()

	log.Infof("Event forwarder started, subject prefix %q", f.prefix)
	for {
		select {
		case <-ctx.Done():
			log.Info("Event forwarder is stopping...")
			return
		case event := <-f.ch:
			f.forward(event)
		}
	}
}

func (f *Forwarder) forward(event interface{}) {
	subject, msg := f.message(event)
	if subject == "" {
		log.Warnf("Event forwarder got an unexpected event %T", event)
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to encode %s event: %v", subject, err)
		return
	}

	if f.publisher == nil {
		log.Debugf("Event %s: %s", subject, data)
		return
	}
	if err := f.publisher.Publish(subject, data); err != nil {
		metrics.NATSMessagesPublished.WithLabelValues(subject, "error").Inc()
		log.Warnf("Failed to publish %s: %v", subject, err)
		return
	}
	metrics.NATSMessagesPublished.WithLabelValues(subject, "ok").Inc()
}

func (f *Forwarder) message(event interface{}) (string, interface{}) {
	switch e := event.(type) {
	case state.BlockHashEvent:
		return f.prefix + ".btc.block", blockMessage{Hash: e.Hash, Height: e.Height}
	case state.DepositClaimedEvent:
		return f.prefix + ".deposit.claimed", depositClaimedMessage(e)
	case state.WithdrawalResolvedEvent:
		return f.prefix + ".withdrawal.resolved", withdrawalResolvedMessage(e)
	default:
		return "", nil
	}
}
