package deposit

import (
	"context"

	"github.com/runesbridge/runes-bridge/internal/indexer"
	"github.com/runesbridge/runes-bridge/internal/state"
)

// Service answers the two deposit views: from a user's bitcoin address and from a starknet account
type Service struct {
	state    *state.State
	ingester *indexer.Ingester
	engine   *Engine
}

func NewService(st *state.State, ingester *indexer.Ingester, engine *Engine) *Service {
	return &Service{
		state:    st,
		ingester: ingester,
		engine:   engine,
	}
}

// BitcoinView lists transfers sent from bitcoinAddr to any bridge deposit address
func (s *Service) BitcoinView(ctx context.Context, bitcoinAddr string) (map[Status][]indexer.Candidate, error) {
	runes, err := s.state.GetSupportedRunes(ctx)
	if err != nil {
		return nil, err
	}
	candidates, err := s.ingester.FetchActivity(ctx, bitcoinAddr, runes, indexer.DirectionSend, "")
	if err != nil {
		return nil, err
	}
	return s.engine.Classify(ctx, candidates)
}

// StarknetView lists transfers received at the deposit address of starknetAddr
func (s *Service) StarknetView(ctx context.Context, starknetAddr string) (map[Status][]indexer.Candidate, error) {
	depositAddr, err := s.state.GetDepositAddressByStarknet(ctx, starknetAddr)
	if err != nil {
		return nil, err
	}
	runes, err := s.state.GetSupportedRunes(ctx)
	if err != nil {
		return nil, err
	}
	candidates, err := s.ingester.FetchActivity(ctx, depositAddr, runes, indexer.DirectionReceive, depositAddr)
	if err != nil {
		return nil, err
	}
	return s.engine.Classify(ctx, candidates)
}
