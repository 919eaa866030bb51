package withdrawal

import (
	"context"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/runesbridge/runes-bridge/internal/apperr"
	"github.com/runesbridge/runes-bridge/internal/btc"
	"github.com/runesbridge/runes-bridge/internal/db"
	"github.com/runesbridge/runes-bridge/internal/state"
	log "github.com/sirupsen/logrus"
)

// TxLookup checks whether the bitcoin network knows a transaction
type TxLookup interface {
	HasTransaction(ctx context.Context, txHash *chainhash.Hash) (bool, error)
}

// Status is the reported state of one withdrawal request
type Status struct {
	Status   string  `json:"status"`
	SnTxHash string  `json:"sn_txhash"`
	Reason   *string `json:"reason,omitempty"`
	BtcTxID  *string `json:"btc_txid,omitempty"`
}

type Filter = state.WithdrawalFilter

// Tracker resolves withdrawal requests against their bitcoin submissions. It never writes.
type Tracker struct {
	state *state.State
	txs   TxLookup

	// request identifier -> bitcoin txid already announced on the bus
	announcedMu sync.Mutex
	announced   map[string]string
}

func NewTracker(st *state.State, txs TxLookup) *Tracker {
	return &Tracker{
		state:     st,
		txs:       txs,
		announced: make(map[string]string),
	}
}

// Status resolves every current request matching filter. Exactly one filter field must be set.
func (t *Tracker) Status(ctx context.Context, filter Filter) ([]Status, error) {
	if (filter.BitcoinAddress == "") == (filter.StarknetAddress == "") {
		return nil, apperr.Validation("exactly one of bitcoin_receiving_address and starknet_sending_address is required")
	}
	rows, err := t.state.GetCurrentWithdrawals(ctx, filter)
	if err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(rows))
	for _, row := range rows {
		status, err := t.resolve(ctx, row)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// StatusByStarknetTx resolves the request created by the starknet transaction snTxHash
func (t *Tracker) StatusByStarknetTx(ctx context.Context, snTxHash string) (*Status, error) {
	row, err := t.state.GetCurrentWithdrawalByTxHash(ctx, snTxHash)
	if err != nil {
		return nil, err
	}
	status, err := t.resolve(ctx, *row)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// resolve prefers a rejection over a request reference
func (t *Tracker) resolve(ctx context.Context, row state.WithdrawalRow) (Status, error) {
	status := Status{Status: db.WITHDRAW_STATUS_IN_REVIEW, SnTxHash: row.Request.TransactionHash}
	sub := row.Submission
	switch {
	case sub == nil:
		return status, nil
	case sub.RejectedStatus != nil:
		status.Status = db.WITHDRAW_STATUS_REJECTED
		status.Reason = sub.RejectedStatus
		return status, nil
	case sub.RequestID != nil:
		txHash, err := btc.ResolveTxID(*sub.RequestID)
		if err != nil {
			log.Warnf("Withdrawal %s has an unreadable request id: %v", row.Request.Identifier, err)
			return status, nil
		}
		found, err := t.txs.HasTransaction(ctx, txHash)
		if err != nil {
			return Status{}, apperr.ExternalService(err, "failed to look up bitcoin tx %s", txHash)
		}
		if found {
			txID := txHash.String()
			status.Status = db.WITHDRAW_STATUS_SUBMITTED
			status.BtcTxID = &txID
			t.announce(row.Request.Identifier, txID, status.Status)
		}
		return status, nil
	default:
		return status, nil
	}
}

// announce publishes WithdrawalResolved once per request and bitcoin tx
func (t *Tracker) announce(identifier, btcTxID, status string) {
	t.announcedMu.Lock()
	if t.announced[identifier] == btcTxID {
		t.announcedMu.Unlock()
		return
	}
	t.announced[identifier] = btcTxID
	t.announcedMu.Unlock()

	t.state.EventBus.Publish(state.WithdrawalResolved, state.WithdrawalResolvedEvent{
		Identifier: identifier,
		Status:     status,
	})
}
