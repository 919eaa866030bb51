package state

import (
	"context"
	"errors"
	"time"

	"github.com/runesbridge/runes-bridge/internal/apperr"
	"github.com/runesbridge/runes-bridge/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WithdrawalRow is a current withdrawal request joined with its submission, if any
type WithdrawalRow struct {
	Request    db.WithdrawalRequest
	Submission *db.WithdrawalSubmission
}

// WithdrawalFilter selects requests by exactly one side of the bridge
type WithdrawalFilter struct {
	BitcoinAddress  string
	StarknetAddress string
}

// GetCurrentWithdrawals returns current requests matching filter, each with its submission
func (s *State) GetCurrentWithdrawals(ctx context.Context, filter WithdrawalFilter) ([]WithdrawalRow, error) {
	s.withdrawMu.RLock()
	defer s.withdrawMu.RUnlock()

	query := s.dbm.GetDB().WithContext(ctx).Where("cursor_to IS NULL")
	switch {
	case filter.BitcoinAddress != "":
		query = query.Where("target_bitcoin_address = ?", filter.BitcoinAddress)
	case filter.StarknetAddress != "":
		query = query.Where("caller_address = ?", filter.StarknetAddress)
	default:
		return nil, apperr.Validation("a bitcoin or starknet address is required")
	}

	var requests []db.WithdrawalRequest
	if err := query.Order("cursor_from asc, id asc").Find(&requests).Error; err != nil {
		return nil, apperr.Persistence(err, "failed to query withdrawal requests")
	}
	return s.joinSubmissions(ctx, requests)
}

// GetCurrentWithdrawalByTxHash returns the current request created by the starknet tx snTxHash
func (s *State) GetCurrentWithdrawalByTxHash(ctx context.Context, snTxHash string) (*WithdrawalRow, error) {
	s.withdrawMu.RLock()
	defer s.withdrawMu.RUnlock()

	var request db.WithdrawalRequest
	result := s.dbm.GetDB().WithContext(ctx).
		Where("transaction_hash = ? AND cursor_to IS NULL", snTxHash).First(&request)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no withdrawal for transaction %s", snTxHash)
		}
		return nil, apperr.Persistence(result.Error, "failed to query withdrawal request")
	}
	rows, err := s.joinSubmissions(ctx, []db.WithdrawalRequest{request})
	if err != nil {
		return nil, err
	}
	return &rows[0], nil
}

func (s *State) joinSubmissions(ctx context.Context, requests []db.WithdrawalRequest) ([]WithdrawalRow, error) {
	rows := make([]WithdrawalRow, 0, len(requests))
	if len(requests) == 0 {
		return rows, nil
	}

	identifiers := make([]string, 0, len(requests))
	for _, req := range requests {
		identifiers = append(identifiers, req.Identifier)
	}
	var submissions []db.WithdrawalSubmission
	if err := s.dbm.GetDB().WithContext(ctx).Where("identifier IN ?", identifiers).Find(&submissions).Error; err != nil {
		return nil, apperr.Persistence(err, "failed to query withdrawal submissions")
	}
	byIdentifier := make(map[string]*db.WithdrawalSubmission, len(submissions))
	for i := range submissions {
		byIdentifier[submissions[i].Identifier] = &submissions[i]
	}

	for _, req := range requests {
		rows = append(rows, WithdrawalRow{Request: req, Submission: byIdentifier[req.Identifier]})
	}
	return rows, nil
}

// AppendWithdrawalRequest closes the current version of req.Identifier and inserts req as current
func (s *State) AppendWithdrawalRequest(ctx context.Context, req *db.WithdrawalRequest) error {
	s.withdrawMu.Lock()
	defer s.withdrawMu.Unlock()

	req.Cursor.To = nil
	err := s.dbm.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := closeCurrentVersion(tx, &db.WithdrawalRequest{}, req.Identifier, req.Cursor.From); err != nil {
			return err
		}
		return tx.Create(req).Error
	})
	if err != nil {
		return apperr.Persistence(err, "failed to append withdrawal request %s", req.Identifier)
	}
	return nil
}

// UpsertWithdrawalSubmission records how the bitcoin side handled a request
func (s *State) UpsertWithdrawalSubmission(ctx context.Context, sub *db.WithdrawalSubmission) error {
	s.withdrawMu.Lock()
	defer s.withdrawMu.Unlock()

	sub.UpdatedAt = time.Now()
	result := s.dbm.GetDB().WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identifier"}},
		DoUpdates: clause.AssignmentColumns([]string{"request_id", "rejected_status", "updated_at"}),
	}).Create(sub)
	if result.Error != nil {
		return apperr.Persistence(result.Error, "failed to save withdrawal submission %s", sub.Identifier)
	}
	return nil
}
