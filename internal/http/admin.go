package http

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gin-gonic/gin"
	"github.com/runesbridge/runes-bridge/internal/apperr"
	"github.com/runesbridge/runes-bridge/internal/db"
	"github.com/runesbridge/runes-bridge/internal/starknet"
	"github.com/runesbridge/runes-bridge/internal/state"
	log "github.com/sirupsen/logrus"
)

type blacklistRequest struct {
	TxID   string `json:"tx_id" binding:"required"`
	Reason string `json:"reason"`
}

type runeRequest struct {
	ID           string `json:"id" binding:"required"`
	Name         string `json:"name" binding:"required"`
	SpacedName   string `json:"spaced_name"`
	Number       uint64 `json:"number"`
	Symbol       string `json:"symbol" binding:"required"`
	Divisibility uint8  `json:"divisibility"`
	Turbo        bool   `json:"turbo"`
	MintTerms    string `json:"mint_terms"`
	Supply       string `json:"supply"`
	Location     string `json:"location"`
}

type depositClaimTxRequest struct {
	Identifier      string `json:"identifier" binding:"required"`
	RuneID          string `json:"rune_id" binding:"required"`
	Amount          string `json:"amount" binding:"required"`
	CallerAddress   string `json:"caller_address" binding:"required"`
	TargetAddress   string `json:"target_address" binding:"required"`
	TransactionHash string `json:"transaction_hash" binding:"required"`
	CursorFrom      *int64 `json:"cursor_from" binding:"required"`
}

type withdrawalRequestRequest struct {
	Identifier           string `json:"identifier" binding:"required"`
	RuneID               string `json:"rune_id" binding:"required"`
	Amount               string `json:"amount" binding:"required"`
	TargetBitcoinAddress string `json:"target_bitcoin_address" binding:"required"`
	CallerAddress        string `json:"caller_address" binding:"required"`
	TransactionHash      string `json:"transaction_hash" binding:"required"`
	CursorFrom           *int64 `json:"cursor_from" binding:"required"`
}

type withdrawalSubmissionRequest struct {
	Identifier     string  `json:"identifier" binding:"required"`
	RequestID      *string `json:"request_id"`
	RejectedStatus *string `json:"rejected_status"`
}

// maxDivisibility is the largest divisibility the rune protocol allows
const maxDivisibility = 38

func (s *Server) handleAddBlacklist(c *gin.Context) {
	var req blacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid blacklist request: %v", err))
		return
	}
	if _, err := chainhash.NewHashFromStr(req.TxID); err != nil || len(req.TxID) != chainhash.MaxHashStringSize {
		respondError(c, apperr.Validation("invalid tx_id %q", req.TxID))
		return
	}

	if err := s.state.AddBlacklistedDeposit(c.Request.Context(), req.TxID, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	log.WithFields(log.Fields{
		"admin":  c.GetString(adminSubjectKey),
		"tx_id":  req.TxID,
		"reason": req.Reason,
	}).Info("Deposit blacklisted")
	respondOK(c, req.TxID)
}

func (s *Server) handleSaveRune(c *gin.Context) {
	var req runeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid rune: %v", err))
		return
	}
	if req.Divisibility > maxDivisibility {
		respondError(c, apperr.Validation("divisibility %d exceeds %d", req.Divisibility, maxDivisibility))
		return
	}
	if _, err := starknet.EncodeSymbol(req.Symbol); err != nil {
		respondError(c, apperr.Validation("invalid symbol: %v", err))
		return
	}
	if req.SpacedName == "" {
		req.SpacedName = req.Name
	}

	r := &db.SupportedRune{
		ID:           req.ID,
		Name:         req.Name,
		SpacedName:   req.SpacedName,
		Number:       req.Number,
		Symbol:       req.Symbol,
		Divisibility: req.Divisibility,
		Turbo:        req.Turbo,
		MintTerms:    req.MintTerms,
		Supply:       req.Supply,
		Location:     req.Location,
	}
	if err := s.state.SaveSupportedRune(c.Request.Context(), r); err != nil {
		respondError(c, err)
		return
	}
	log.WithFields(log.Fields{
		"admin": c.GetString(adminSubjectKey),
		"rune":  r.ID,
	}).Info("Supported rune saved")
	respondOK(c, r)
}

func (s *Server) handleAppendDepositClaimTx(c *gin.Context) {
	var req depositClaimTxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid deposit claim tx: %v", err))
		return
	}
	identifier, err := parseOutpoint(req.Identifier)
	if err != nil {
		respondError(c, err)
		return
	}
	caller, err := normalizeField("caller_address", req.CallerAddress)
	if err != nil {
		respondError(c, err)
		return
	}
	target, err := normalizeField("target_address", req.TargetAddress)
	if err != nil {
		respondError(c, err)
		return
	}

	claim := &db.DepositClaimTx{
		Identifier:      identifier,
		RuneID:          req.RuneID,
		Amount:          req.Amount,
		CallerAddress:   caller,
		TargetAddress:   target,
		TransactionHash: req.TransactionHash,
		Cursor:          db.Cursor{From: *req.CursorFrom},
	}
	if err := s.state.AppendDepositClaimTx(c.Request.Context(), claim); err != nil {
		respondError(c, err)
		return
	}
	log.WithFields(log.Fields{"admin": c.GetString(adminSubjectKey), "identifier": identifier}).Info("Deposit claim tx recorded")
	respondOK(c, claim)
}

func (s *Server) handleAppendWithdrawalRequest(c *gin.Context) {
	var req withdrawalRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid withdrawal request: %v", err))
		return
	}
	identifier, err := parseOutpoint(req.Identifier)
	if err != nil {
		respondError(c, err)
		return
	}
	caller, err := normalizeField("caller_address", req.CallerAddress)
	if err != nil {
		respondError(c, err)
		return
	}

	withdrawal := &db.WithdrawalRequest{
		Identifier:           identifier,
		RuneID:               req.RuneID,
		Amount:               req.Amount,
		TargetBitcoinAddress: req.TargetBitcoinAddress,
		CallerAddress:        caller,
		TransactionHash:      req.TransactionHash,
		Cursor:               db.Cursor{From: *req.CursorFrom},
	}
	if err := s.state.AppendWithdrawalRequest(c.Request.Context(), withdrawal); err != nil {
		respondError(c, err)
		return
	}
	log.WithFields(log.Fields{"admin": c.GetString(adminSubjectKey), "identifier": identifier}).Info("Withdrawal request recorded")
	respondOK(c, withdrawal)
}

func (s *Server) handleUpsertWithdrawalSubmission(c *gin.Context) {
	var req withdrawalSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid withdrawal submission: %v", err))
		return
	}
	identifier, err := parseOutpoint(req.Identifier)
	if err != nil {
		respondError(c, err)
		return
	}

	sub := &db.WithdrawalSubmission{
		Identifier:     identifier,
		RequestID:      req.RequestID,
		RejectedStatus: req.RejectedStatus,
	}
	if err := s.state.UpsertWithdrawalSubmission(c.Request.Context(), sub); err != nil {
		respondError(c, err)
		return
	}
	log.WithFields(log.Fields{"admin": c.GetString(adminSubjectKey), "identifier": identifier}).Info("Withdrawal submission recorded")
	respondOK(c, sub)
}

// parseOutpoint checks a "{txid}:{vout}" identifier and returns it in canonical form
func parseOutpoint(identifier string) (string, error) {
	txID, voutStr, ok := strings.Cut(identifier, ":")
	if !ok {
		return "", apperr.Validation("identifier %q is not txid:vout", identifier)
	}
	if _, err := hex.DecodeString(txID); err != nil || len(txID) != chainhash.MaxHashStringSize {
		return "", apperr.Validation("identifier %q has an invalid txid", identifier)
	}
	vout, err := strconv.ParseUint(voutStr, 10, 32)
	if err != nil {
		return "", apperr.Validation("identifier %q has an invalid vout", identifier)
	}
	return state.DepositIdentifier(strings.ToLower(txID), uint32(vout)), nil
}

func normalizeField(name, value string) (string, error) {
	normalized, err := starknet.NormalizeAddress(value)
	if err != nil {
		return "", apperr.Validation("invalid %s %q: %v", name, value, err)
	}
	return normalized, nil
}
