package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/runesbridge/runes-bridge/internal/db"
	log "github.com/sirupsen/logrus"
)

// Direction selects which side of a deposit an address is looked at from
type Direction int

const (
	// DirectionSend is the bitcoin view: outgoing transfers of a user address
	DirectionSend Direction = iota
	// DirectionReceive is the starknet view: incoming transfers at a deposit address
	DirectionReceive
)

func (d Direction) String() string {
	if d == DirectionReceive {
		return "receive"
	}
	return "send"
}

// Candidate is an activity record that may be a bridge deposit
type Candidate struct {
	Rune   db.SupportedRune `json:"rune"`
	Record ActivityRecord   `json:"tx"`
}

// Identifier names the output the candidate moved runes to
func (c Candidate) Identifier() string {
	if c.Record.Location.Vout == nil {
		return c.Record.Location.TxID + ":-"
	}
	return fmt.Sprintf("%s:%d", c.Record.Location.TxID, *c.Record.Location.Vout)
}

// ActivityPager is the indexer surface the ingester pages through
type ActivityPager interface {
	GetRuneActivity(ctx context.Context, runeID, address string, offset int) (*ActivityPage, error)
}

// AddressRegistry answers whether an address was handed out as a deposit address
type AddressRegistry interface {
	IsDepositAddress(ctx context.Context, bitcoinAddr string) (bool, error)
}

type Ingester struct {
	pager    ActivityPager
	registry AddressRegistry
}

func NewIngester(pager ActivityPager, registry AddressRegistry) *Ingester {
	return &Ingester{
		pager:    pager,
		registry: registry,
	}
}

// FetchActivity pages through the activity of address for every rune and keeps deposit candidates.
// A non-success indexer status ends only that rune; transport failures abort the whole fetch.
// targetDepositAddr, when set, is accepted as a receiver without a registry lookup.
func (ing *Ingester) FetchActivity(ctx context.Context, address string, runes []db.SupportedRune, direction Direction, targetDepositAddr string) ([]Candidate, error) {
	var candidates []Candidate
	seen := make(map[string]struct{})

	for _, r := range runes {
		for page := 0; ; page++ {
			result, err := ing.pager.GetRuneActivity(ctx, r.ID, address, page*PageSize)
			if err != nil {
				var statusErr *StatusError
				if errors.As(err, &statusErr) {
					log.Warnf("Failed to fetch activity for rune %s and address %s: %v", r.SpacedName, address, err)
					break
				}
				return nil, err
			}

			for _, record := range result.Results {
				ok, err := ing.accept(ctx, record, direction, targetDepositAddr)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				candidate := Candidate{Rune: r, Record: record}
				if _, dup := seen[candidate.Identifier()]; dup {
					continue
				}
				seen[candidate.Identifier()] = struct{}{}
				candidates = append(candidates, candidate)
			}

			if uint64((page+1)*PageSize) >= result.Total {
				break
			}
		}
	}

	log.Debugf("Ingested %d %s candidates for %s over %d runes", len(candidates), direction, address, len(runes))
	return candidates, nil
}

func (ing *Ingester) accept(ctx context.Context, record ActivityRecord, direction Direction, targetDepositAddr string) (bool, error) {
	var depositSide *string
	switch direction {
	case DirectionSend:
		if record.Operation != OperationSend || record.Address == nil || record.ReceiverAddress == nil {
			return false, nil
		}
		depositSide = record.ReceiverAddress
	case DirectionReceive:
		if record.Operation != OperationReceive || record.Address == nil {
			return false, nil
		}
		depositSide = record.Address
	default:
		return false, nil
	}

	if targetDepositAddr != "" && *depositSide == targetDepositAddr {
		return true, nil
	}
	return ing.registry.IsDepositAddress(ctx, *depositSide)
}
