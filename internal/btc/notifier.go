package btc

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/runesbridge/runes-bridge/internal/metrics"
	"github.com/runesbridge/runes-bridge/internal/state"
	log "github.com/sirupsen/logrus"
)

// ChainTipSource is the node query the notifier polls
type ChainTipSource interface {
	GetChainTip(ctx context.Context) (*chainhash.Hash, int32, error)
}

// BlockNotifier publishes BlockHashReceived whenever the best block changes
type BlockNotifier struct {
	source   ChainTipSource
	bus      *state.EventBus
	interval time.Duration

	lastHash *chainhash.Hash
}

func NewBlockNotifier(source ChainTipSource, bus *state.EventBus, interval time.Duration) *BlockNotifier {
	return &BlockNotifier{
		source:   source,
		bus:      bus,
		interval: interval,
	}
}

// Start polls until ctx is done
func (bn *BlockNotifier) Start(ctx context.Context) {
	log.Infof("BlockNotifier starting, interval: %s", bn.interval)
	ticker := time.NewTicker(bn.interval)
	defer ticker.Stop()

	bn.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("BlockNotifier stopping...")
			return
		case <-ticker.C:
			bn.poll(ctx)
		}
	}
}

func (bn *BlockNotifier) poll(ctx context.Context) {
	hash, height, err := bn.source.GetChainTip(ctx)
	if err != nil {
		if ctx.Err() == nil {
			metrics.BTCRPCErrors.WithLabelValues("getbestblockhash").Inc()
			log.Errorf("BlockNotifier failed to get chain tip: %v", err)
		}
		return
	}
	if bn.lastHash != nil && bn.lastHash.IsEqual(hash) {
		return
	}
	bn.lastHash = hash
	metrics.BTCBestHeight.Set(float64(height))
	log.Debugf("BlockNotifier new best block %s at height %d", hash, height)
	bn.bus.Publish(state.BlockHashReceived, state.BlockHashEvent{Hash: hash.String(), Height: height})
}
