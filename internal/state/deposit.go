package state

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/runesbridge/runes-bridge/internal/apperr"
	"github.com/runesbridge/runes-bridge/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DepositIdentifier is the idempotency key of a deposit output
func DepositIdentifier(txID string, vout uint32) string {
	return fmt.Sprintf("%s:%d", txID, vout)
}

// SetDepositAddress records (or refreshes) the deposit address of a starknet account
func (s *State) SetDepositAddress(ctx context.Context, starknetAddr, bitcoinAddr string) error {
	s.depositMu.Lock()
	defer s.depositMu.Unlock()

	now := time.Now()
	record := &db.DepositAddress{
		StarknetAddress:       starknetAddr,
		BitcoinDepositAddress: bitcoinAddr,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	result := s.dbm.GetDB().WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "starknet_address"}},
		DoUpdates: clause.AssignmentColumns([]string{"bitcoin_deposit_address", "updated_at"}),
	}).Create(record)
	if result.Error != nil {
		return apperr.Persistence(result.Error, "failed to save deposit address")
	}
	return nil
}

// GetDepositAddressByStarknet returns the deposit address previously handed out to starknetAddr
func (s *State) GetDepositAddressByStarknet(ctx context.Context, starknetAddr string) (string, error) {
	s.depositMu.RLock()
	defer s.depositMu.RUnlock()

	var record db.DepositAddress
	result := s.dbm.GetDB().WithContext(ctx).Where("starknet_address = ?", starknetAddr).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", apperr.NotFound("no deposit address for %s", starknetAddr)
		}
		return "", apperr.Persistence(result.Error, "failed to query deposit address")
	}
	return record.BitcoinDepositAddress, nil
}

// IsDepositAddress reports whether bitcoinAddr was handed out as a deposit address
func (s *State) IsDepositAddress(ctx context.Context, bitcoinAddr string) (bool, error) {
	s.depositMu.RLock()
	defer s.depositMu.RUnlock()

	var count int64
	result := s.dbm.GetDB().WithContext(ctx).Model(&db.DepositAddress{}).
		Where("bitcoin_deposit_address = ?", bitcoinAddr).Count(&count)
	if result.Error != nil {
		return false, apperr.Persistence(result.Error, "failed to query deposit address")
	}
	return count > 0, nil
}

// GetDepositAddresses returns the registered mappings for the given bitcoin addresses
func (s *State) GetDepositAddresses(ctx context.Context, bitcoinAddrs []string) ([]db.DepositAddress, error) {
	s.depositMu.RLock()
	defer s.depositMu.RUnlock()

	var records []db.DepositAddress
	if len(bitcoinAddrs) == 0 {
		return records, nil
	}
	result := s.dbm.GetDB().WithContext(ctx).
		Where("bitcoin_deposit_address IN ?", bitcoinAddrs).
		Order("id asc").Find(&records)
	if result.Error != nil {
		return nil, apperr.Persistence(result.Error, "failed to query deposit addresses")
	}
	return records, nil
}

// IsBlacklisted reports whether deposits of txID are excluded from claiming
func (s *State) IsBlacklisted(ctx context.Context, txID string) (bool, error) {
	s.depositMu.RLock()
	defer s.depositMu.RUnlock()

	var count int64
	result := s.dbm.GetDB().WithContext(ctx).Model(&db.BlacklistedDeposit{}).Where("tx_id = ?", txID).Count(&count)
	if result.Error != nil {
		return false, apperr.Persistence(result.Error, "failed to query blacklist")
	}
	return count > 0, nil
}

func (s *State) AddBlacklistedDeposit(ctx context.Context, txID, reason string) error {
	s.depositMu.Lock()
	defer s.depositMu.Unlock()

	record := &db.BlacklistedDeposit{TxID: txID, Reason: reason, CreatedAt: time.Now()}
	result := s.dbm.GetDB().WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(record)
	if result.Error != nil {
		return apperr.Persistence(result.Error, "failed to blacklist %s", txID)
	}
	return nil
}

// HasCurrentClaimTx reports whether a claim transaction for identifier is currently recorded
func (s *State) HasCurrentClaimTx(ctx context.Context, identifier string) (bool, error) {
	s.depositMu.RLock()
	defer s.depositMu.RUnlock()

	var count int64
	result := s.dbm.GetDB().WithContext(ctx).Model(&db.DepositClaimTx{}).
		Where("identifier = ? AND cursor_to IS NULL", identifier).Count(&count)
	if result.Error != nil {
		return false, apperr.Persistence(result.Error, "failed to query claim tx")
	}
	return count > 0, nil
}

// GetDepositClaimTxHash returns the starknet claim tx hash for any output of btcTxID
func (s *State) GetDepositClaimTxHash(ctx context.Context, btcTxID string) (string, error) {
	s.depositMu.RLock()
	defer s.depositMu.RUnlock()

	if _, err := hex.DecodeString(btcTxID); err != nil || len(btcTxID) != chainhash.MaxHashStringSize {
		return "", apperr.Validation("invalid bitcoin txid %q", btcTxID)
	}
	prefix := strings.ToLower(btcTxID) + ":"

	var claim db.DepositClaimTx
	result := s.dbm.GetDB().WithContext(ctx).
		Where("substr(identifier, 1, 65) = ? AND cursor_to IS NULL", prefix).
		Order("id asc").First(&claim)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", apperr.NotFound("no claim transaction for %s", btcTxID)
		}
		return "", apperr.Persistence(result.Error, "failed to query claim tx")
	}
	return claim.TransactionHash, nil
}

// GetDepositClaimTxsByTarget lists current claim transactions minting to the given starknet addresses
func (s *State) GetDepositClaimTxsByTarget(ctx context.Context, targets []string) ([]db.DepositClaimTx, error) {
	s.depositMu.RLock()
	defer s.depositMu.RUnlock()

	var claims []db.DepositClaimTx
	if len(targets) == 0 {
		return claims, nil
	}
	result := s.dbm.GetDB().WithContext(ctx).
		Where("target_address IN ? AND cursor_to IS NULL", targets).
		Order("cursor_from asc, id asc").Find(&claims)
	if result.Error != nil {
		return nil, apperr.Persistence(result.Error, "failed to query claim txs")
	}
	return claims, nil
}

// AppendDepositClaimTx closes the current version of claim.Identifier at claim.Cursor.From and inserts claim as current
func (s *State) AppendDepositClaimTx(ctx context.Context, claim *db.DepositClaimTx) error {
	s.depositMu.Lock()
	defer s.depositMu.Unlock()

	claim.Cursor.To = nil
	err := s.dbm.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := closeCurrentVersion(tx, &db.DepositClaimTx{}, claim.Identifier, claim.Cursor.From); err != nil {
			return err
		}
		return tx.Create(claim).Error
	})
	if err != nil {
		return apperr.Persistence(err, "failed to append claim tx %s", claim.Identifier)
	}
	return nil
}

// SaveClaimedDeposit upserts the claimed deposit by identifier in its own transaction.
// It returns only after the commit.
func (s *State) SaveClaimedDeposit(ctx context.Context, deposit *db.ClaimedDeposit) error {
	s.depositMu.Lock()
	defer s.depositMu.Unlock()

	deposit.UpdatedAt = time.Now()
	if deposit.CreatedAt.IsZero() {
		deposit.CreatedAt = deposit.UpdatedAt
	}
	err := s.dbm.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "identifier"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"rune_id", "rune_name", "rune_spaced_name", "amount",
				"bitcoin_deposit_addr", "starknet_address", "updated_at",
			}),
		}).Create(deposit).Error
	})
	if err != nil {
		return apperr.Persistence(err, "failed to store claimed deposit %s", deposit.Identifier)
	}
	return nil
}

func (s *State) GetClaimedDeposit(ctx context.Context, identifier string) (*db.ClaimedDeposit, error) {
	s.depositMu.RLock()
	defer s.depositMu.RUnlock()

	var deposit db.ClaimedDeposit
	result := s.dbm.GetDB().WithContext(ctx).Where("identifier = ?", identifier).First(&deposit)
	if result.Error != nil {
		return nil, result.Error
	}
	return &deposit, nil
}

// closeCurrentVersion sets cursor_to on the open version of identifier, if there is one
func closeCurrentVersion(tx *gorm.DB, model interface{}, identifier string, at int64) error {
	var currentFrom []int64
	if err := tx.Model(model).Where("identifier = ? AND cursor_to IS NULL", identifier).
		Pluck("cursor_from", &currentFrom).Error; err != nil {
		return err
	}
	for _, from := range currentFrom {
		if from > at {
			return fmt.Errorf("version of %s starting at %d is newer than %d", identifier, from, at)
		}
	}
	return tx.Model(model).Where("identifier = ? AND cursor_to IS NULL", identifier).
		Update("cursor_to", at).Error
}
