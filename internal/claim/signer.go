package claim

import (
	"context"
	"errors"
	"net/http"

	"github.com/runesbridge/runes-bridge/internal/apperr"
	"github.com/runesbridge/runes-bridge/internal/db"
	"github.com/runesbridge/runes-bridge/internal/deposit"
	"github.com/runesbridge/runes-bridge/internal/indexer"
	"github.com/runesbridge/runes-bridge/internal/metrics"
	"github.com/runesbridge/runes-bridge/internal/starknet"
	"github.com/runesbridge/runes-bridge/internal/state"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ActivitySource returns the rune activity of one bitcoin transaction
type ActivitySource interface {
	GetTransactionActivity(ctx context.Context, txID string) (*indexer.ActivityPage, error)
}

// AddressDeriver recomputes the deposit address of a starknet account
type AddressDeriver interface {
	Derive(accountID string) (string, error)
}

type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
}

// Payload is what the bridge contract's claim entrypoint takes
type Payload struct {
	RuneID     string    `json:"rune_id"`
	Amount     [2]string `json:"amount"`
	TargetAddr string    `json:"target_addr"`
	TxID       string    `json:"tx_id"`
	Sig        Signature `json:"sig"`
}

type Signer struct {
	activity ActivitySource
	deriver  AddressDeriver
	engine   *deposit.Engine
	state    *state.State
	key      *starknet.Signer
}

func NewSigner(activity ActivitySource, deriver AddressDeriver, engine *deposit.Engine, st *state.State, key *starknet.Signer) *Signer {
	return &Signer{
		activity: activity,
		deriver:  deriver,
		engine:   engine,
		state:    st,
		key:      key,
	}
}

// SignClaim checks that txID:vout is an eligible deposit to accountID, signs the claim and
// stores it. The payload is only returned once the claimed deposit is committed.
func (s *Signer) SignClaim(ctx context.Context, accountID, txID string, vout *uint32) (*Payload, error) {
	payload, err := s.signClaim(ctx, accountID, txID, vout)
	if err != nil {
		metrics.ClaimsFailed.WithLabelValues(apperr.KindOf(err).String()).Inc()
		return nil, err
	}
	metrics.ClaimsSigned.Inc()
	return payload, nil
}

func (s *Signer) signClaim(ctx context.Context, accountID, txID string, vout *uint32) (*Payload, error) {
	account, err := starknet.ParseFelt(accountID)
	if err != nil {
		return nil, apperr.Validation("invalid starknet address %q: %v", accountID, err)
	}
	txLimbs, err := starknet.ParseTxID(txID)
	if err != nil {
		return nil, apperr.Validation("invalid tx id: %v", err)
	}

	record, err := s.findDeposit(ctx, txID, vout)
	if err != nil {
		return nil, err
	}
	if record.Location.Vout == nil {
		return nil, apperr.Validation("indexer reports no output index for tx %s", txID)
	}
	outputIndex := *record.Location.Vout

	expected, err := s.deriver.Derive(accountID)
	if err != nil {
		return nil, err
	}
	if expected != *record.Address {
		return nil, apperr.Validation("deposit address %s does not belong to starknet address %s", *record.Address, accountID)
	}

	if err := s.checkEligible(ctx, indexer.Candidate{Record: *record}); err != nil {
		return nil, err
	}

	if record.Rune == nil {
		return nil, apperr.Validation("indexer reports no rune for tx %s", txID)
	}
	supported, err := s.state.GetSupportedRune(ctx, record.Rune.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Validation("rune %s is not supported", record.Rune.ID)
		}
		return nil, apperr.Persistence(err, "failed to load rune %s", record.Rune.ID)
	}
	runeID, err := starknet.EncodeSymbol(supported.Symbol)
	if err != nil {
		return nil, apperr.Validation("rune %s: %v", supported.ID, err)
	}

	if record.Amount == nil {
		return nil, apperr.Validation("indexer reports no amount for tx %s", txID)
	}
	scaled, err := starknet.ScaleAmount(*record.Amount, supported.Divisibility)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	amount, err := starknet.SplitUint256(scaled)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}

	msg := starknet.ClaimMessage{RuneID: runeID, Amount: amount, AccountID: account, TxID: txLimbs}
	sig, err := s.key.Sign(msg.Hash())
	if err != nil {
		return nil, apperr.Crypto(err, "failed to sign claim for %s:%d", txID, outputIndex)
	}

	identifier := state.DepositIdentifier(txID, outputIndex)
	err = s.state.SaveClaimedDeposit(ctx, &db.ClaimedDeposit{
		Identifier:         identifier,
		TxID:               txID,
		Vout:               outputIndex,
		RuneID:             supported.ID,
		RuneName:           supported.Name,
		RuneSpacedName:     supported.SpacedName,
		Amount:             *record.Amount,
		BitcoinDepositAddr: expected,
		StarknetAddress:    starknet.FormatFelt(account),
	})
	if err != nil {
		return nil, err
	}
	log.Infof("Signed claim %s of %s %s for %s", identifier, *record.Amount, supported.SpacedName, starknet.FormatFelt(account))

	s.state.EventBus.Publish(state.DepositClaimed, state.DepositClaimedEvent{
		Identifier:      identifier,
		TxID:            txID,
		Vout:            outputIndex,
		RuneID:          supported.ID,
		Amount:          *record.Amount,
		StarknetAddress: starknet.FormatFelt(account),
	})

	return &Payload{
		RuneID:     starknet.FormatFelt(runeID),
		Amount:     [2]string{starknet.FormatFelt(amount.Low), starknet.FormatFelt(amount.High)},
		TargetAddr: starknet.FormatFelt(account),
		TxID:       txID,
		Sig:        Signature{R: starknet.FormatFelt(sig.R), S: starknet.FormatFelt(sig.S)},
	}, nil
}

// findDeposit picks the receive record of txID at vout, or the first one when vout is not given
func (s *Signer) findDeposit(ctx context.Context, txID string, vout *uint32) (*indexer.ActivityRecord, error) {
	page, err := s.activity.GetTransactionActivity(ctx, txID)
	if err != nil {
		var statusErr *indexer.StatusError
		if errors.As(err, &statusErr) {
			if statusErr.Code == http.StatusNotFound {
				return nil, apperr.NotFound("no rune activity for tx %s", txID)
			}
			return nil, apperr.ExternalService(err, "failed to fetch activity of tx %s", txID)
		}
		return nil, err
	}

	for i := range page.Results {
		record := &page.Results[i]
		if record.Operation != indexer.OperationReceive || record.Location.TxID != txID || record.Address == nil {
			continue
		}
		if vout == nil {
			log.Warnf("Claim of tx %s without vout, using the first receive record", txID)
			return record, nil
		}
		if record.Location.Vout != nil && *record.Location.Vout == *vout {
			return record, nil
		}
	}
	return nil, apperr.NotFound("no deposit found for tx %s", txID)
}

func (s *Signer) checkEligible(ctx context.Context, candidate indexer.Candidate) error {
	status, err := s.engine.StatusOf(ctx, candidate)
	if err != nil {
		return err
	}
	switch status {
	case deposit.StatusPending:
		return apperr.Validation("deposit %s does not have enough confirmations", candidate.Identifier())
	case deposit.StatusClaimed:
		blacklisted, err := s.engine.IsBlacklisted(ctx, candidate.Record.Location.TxID)
		if err != nil {
			return err
		}
		if blacklisted {
			return apperr.Validation("deposit %s is blacklisted", candidate.Identifier())
		}
	}
	return nil
}
