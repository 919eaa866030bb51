package deposit

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/runesbridge/runes-bridge/internal/apperr"
	"github.com/runesbridge/runes-bridge/internal/db"
	"github.com/runesbridge/runes-bridge/internal/indexer"
	"github.com/runesbridge/runes-bridge/internal/metrics"
	log "github.com/sirupsen/logrus"
)

type Status string

const (
	StatusPending   Status = db.DEPOSIT_STATUS_PENDING
	StatusConfirmed Status = db.DEPOSIT_STATUS_CONFIRMED
	StatusClaimed   Status = db.DEPOSIT_STATUS_CLAIMED
)

// BlockHeaderSource reads the confirmation depth of a block
type BlockHeaderSource interface {
	GetBlockConfirmations(ctx context.Context, blockHash string) (int64, error)
}

// Ledger is the part of the deposit ledger classification depends on
type Ledger interface {
	IsBlacklisted(ctx context.Context, txID string) (bool, error)
	HasCurrentClaimTx(ctx context.Context, identifier string) (bool, error)
}

// Engine buckets deposit candidates by confirmation depth, blacklist and claim state
type Engine struct {
	headers          BlockHeaderSource
	ledger           Ledger
	minConfirmations int64
}

func NewEngine(headers BlockHeaderSource, ledger Ledger, minConfirmations int64) *Engine {
	return &Engine{
		headers:          headers,
		ledger:           ledger,
		minConfirmations: minConfirmations,
	}
}

// Classify puts every candidate in exactly one bucket. Any failed lookup fails the whole batch.
func (e *Engine) Classify(ctx context.Context, candidates []indexer.Candidate) (map[Status][]indexer.Candidate, error) {
	buckets := make(map[Status][]indexer.Candidate)
	confirmations := make(map[string]int64)

	for _, candidate := range candidates {
		blockHash := candidate.Record.Location.BlockHash
		if _, err := chainhash.NewHashFromStr(blockHash); err != nil || blockHash == "" {
			return nil, apperr.ExternalService(err, "malformed block hash %q for tx %s", blockHash, candidate.Record.Location.TxID)
		}

		depth, ok := confirmations[blockHash]
		if !ok {
			var err error
			depth, err = e.headers.GetBlockConfirmations(ctx, blockHash)
			if err != nil {
				metrics.BTCRPCErrors.WithLabelValues("getblockheader").Inc()
				return nil, apperr.ExternalService(err, "failed to read confirmations of block %s", blockHash)
			}
			confirmations[blockHash] = depth
		}

		status, err := e.status(ctx, candidate, depth)
		if err != nil {
			return nil, err
		}
		buckets[status] = append(buckets[status], candidate)
	}

	for status, bucket := range buckets {
		metrics.DepositsClassified.WithLabelValues(string(status)).Add(float64(len(bucket)))
	}
	log.Debugf("Classified %d candidates: %d pending, %d confirmed, %d claimed", len(candidates),
		len(buckets[StatusPending]), len(buckets[StatusConfirmed]), len(buckets[StatusClaimed]))
	return buckets, nil
}

// StatusOf classifies a single candidate
func (e *Engine) StatusOf(ctx context.Context, candidate indexer.Candidate) (Status, error) {
	buckets, err := e.Classify(ctx, []indexer.Candidate{candidate})
	if err != nil {
		return "", err
	}
	for status := range buckets {
		return status, nil
	}
	return StatusPending, nil
}

// IsBlacklisted exposes the blacklist to callers that must tell a claimed deposit from a refused one
func (e *Engine) IsBlacklisted(ctx context.Context, txID string) (bool, error) {
	return e.ledger.IsBlacklisted(ctx, txID)
}

func (e *Engine) status(ctx context.Context, candidate indexer.Candidate, depth int64) (Status, error) {
	if depth < e.minConfirmations {
		return StatusPending, nil
	}

	blacklisted, err := e.ledger.IsBlacklisted(ctx, candidate.Record.Location.TxID)
	if err != nil {
		return "", err
	}
	if blacklisted {
		return StatusClaimed, nil
	}
	claimed, err := e.ledger.HasCurrentClaimTx(ctx, candidate.Identifier())
	if err != nil {
		return "", err
	}
	if claimed {
		return StatusClaimed, nil
	}
	return StatusConfirmed, nil
}
