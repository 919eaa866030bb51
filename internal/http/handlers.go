package http

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/gin-gonic/gin"
	"github.com/runesbridge/runes-bridge/internal/apperr"
	"github.com/runesbridge/runes-bridge/internal/db"
	"github.com/runesbridge/runes-bridge/internal/deposit"
	"github.com/runesbridge/runes-bridge/internal/indexer"
	"github.com/runesbridge/runes-bridge/internal/starknet"
	"github.com/runesbridge/runes-bridge/internal/state"
	"github.com/runesbridge/runes-bridge/internal/withdrawal"
	log "github.com/sirupsen/logrus"
)

// DepositsView is the classified deposit listing. Every bucket is always present.
type DepositsView struct {
	Pending   []indexer.Candidate `json:"pending"`
	Confirmed []indexer.Candidate `json:"confirmed"`
	Claimed   []indexer.Candidate `json:"claimed"`
}

func newDepositsView(buckets map[deposit.Status][]indexer.Candidate) DepositsView {
	view := DepositsView{
		Pending:   buckets[deposit.StatusPending],
		Confirmed: buckets[deposit.StatusConfirmed],
		Claimed:   buckets[deposit.StatusClaimed],
	}
	if view.Pending == nil {
		view.Pending = []indexer.Candidate{}
	}
	if view.Confirmed == nil {
		view.Confirmed = []indexer.Candidate{}
	}
	if view.Claimed == nil {
		view.Claimed = []indexer.Candidate{}
	}
	return view
}

type claimRequest struct {
	StarknetAddr string  `json:"starknet_addr" binding:"required"`
	TxID         string  `json:"tx_id" binding:"required"`
	TxVout       *uint32 `json:"tx_vout"`
}

func (s *Server) handleVersion(c *gin.Context) {
	respondOK(c, "runes-bridge "+Version)
}

func (s *Server) handleGetBitcoinDepositAddr(c *gin.Context) {
	starknetAddr, err := requireStarknetAddress(c, "starknet_addr")
	if err != nil {
		respondError(c, err)
		return
	}

	depositAddr, err := s.deriver.Derive(starknetAddr)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.state.SetDepositAddress(c.Request.Context(), starknetAddr, depositAddr); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, depositAddr)
}

func (s *Server) handleBitcoinToStarknetMapping(c *gin.Context) {
	bitcoinAddrs := c.QueryArray("bitcoin_addresses")
	if len(bitcoinAddrs) == 0 {
		respondError(c, apperr.Validation("bitcoin_addresses is required"))
		return
	}

	records, err := s.state.GetDepositAddresses(c.Request.Context(), bitcoinAddrs)
	if err != nil {
		respondError(c, err)
		return
	}
	mapping := make(map[string]string, len(records))
	for _, record := range records {
		mapping[record.BitcoinDepositAddress] = record.StarknetAddress
	}
	respondOK(c, mapping)
}

func (s *Server) handleGetDepositsBitcoin(c *gin.Context) {
	bitcoinAddr := c.Query("bitcoin_addr")
	if bitcoinAddr == "" {
		respondError(c, apperr.Validation("bitcoin_addr is required"))
		return
	}
	if _, err := btcutil.DecodeAddress(bitcoinAddr, s.params); err != nil {
		respondError(c, apperr.Validation("invalid bitcoin address %q: %v", bitcoinAddr, err))
		return
	}

	buckets, err := s.deposits.BitcoinView(c.Request.Context(), bitcoinAddr)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, newDepositsView(buckets))
}

func (s *Server) handleGetDepositsStarknet(c *gin.Context) {
	starknetAddr, err := requireStarknetAddress(c, "starknet_addr")
	if err != nil {
		respondError(c, err)
		return
	}

	buckets, err := s.deposits.StarknetView(c.Request.Context(), starknetAddr)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, newDepositsView(buckets))
}

func (s *Server) handleClaimDepositData(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid claim request: %v", err))
		return
	}

	payload, err := s.claims.SignClaim(c.Request.Context(), req.StarknetAddr, req.TxID, req.TxVout)
	if err != nil {
		respondError(c, err)
		return
	}
	log.WithField(requestIDKey, c.GetString(requestIDKey)).Infof("Signed claim of %s for %s", req.TxID, payload.TargetAddr)
	respondOK(c, payload)
}

func (s *Server) handleDepositClaimTxHash(c *gin.Context) {
	btcTxID := c.Query("btc_txid")
	if btcTxID == "" {
		respondError(c, apperr.Validation("btc_txid is required"))
		return
	}

	snTxHash, err := s.state.GetDepositClaimTxHash(c.Request.Context(), btcTxID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, snTxHash)
}

func (s *Server) handleBitcoinDeposits(c *gin.Context) {
	raw, ok := c.GetQueryArray("starknet_receiving_addresses")
	if !ok {
		respondError(c, apperr.Validation("starknet_receiving_addresses is required"))
		return
	}
	targets := make([]string, 0, len(raw))
	for _, addr := range raw {
		normalized, err := starknet.NormalizeAddress(addr)
		if err != nil {
			log.Debugf("Skipping invalid starknet address %q: %v", addr, err)
			continue
		}
		targets = append(targets, normalized)
	}

	claims, err := s.state.GetDepositClaimTxsByTarget(c.Request.Context(), targets)
	if err != nil {
		respondError(c, err)
		return
	}
	if claims == nil {
		claims = []db.DepositClaimTx{}
	}
	respondOK(c, claims)
}

func (s *Server) handleWithdrawalStatus(c *gin.Context) {
	snTxHash := c.Query("sn_txhash")
	if snTxHash == "" {
		respondError(c, apperr.Validation("sn_txhash is required"))
		return
	}

	status, err := s.withdrawals.StatusByStarknetTx(c.Request.Context(), snTxHash)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, status)
}

func (s *Server) handleBitcoinWithdrawals(c *gin.Context) {
	filter := withdrawal.Filter{BitcoinAddress: c.Query("bitcoin_receiving_address")}
	if raw := c.Query("starknet_sending_address"); raw != "" {
		normalized, err := starknet.NormalizeAddress(raw)
		if err != nil {
			respondError(c, apperr.Validation("invalid starknet_sending_address %q: %v", raw, err))
			return
		}
		filter.StarknetAddress = normalized
	}

	statuses, err := s.withdrawals.Status(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, statuses)
}

// requireStarknetAddress reads a mandatory felt query parameter in canonical form
func requireStarknetAddress(c *gin.Context, key string) (string, error) {
	raw := c.Query(key)
	if raw == "" {
		return "", apperr.Validation("%s is required", key)
	}
	normalized, err := starknet.NormalizeAddress(raw)
	if err != nil {
		return "", apperr.Validation("invalid %s %q: %v", key, raw, err)
	}
	return normalized, nil
}

type healthReport struct {
	Database    string         `json:"database"`
	Subscribers map[string]int `json:"subscribers"`
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.state.Ping(c.Request.Context()); err != nil {
		respondError(c, apperr.Persistence(err, "database unreachable"))
		return
	}
	report := healthReport{Database: "ok", Subscribers: make(map[string]int)}
	for _, eventType := range []state.EventType{state.BlockHashReceived, state.DepositClaimed, state.WithdrawalResolved} {
		report.Subscribers[eventType.String()] = s.state.EventBus.SubscriberCount(eventType)
	}
	respondOK(c, report)
}
