package state

import (
	"context"
	"strings"
	"testing"

	"github.com/runesbridge/runes-bridge/internal/apperr"
	"github.com/runesbridge/runes-bridge/internal/config"
	"github.com/runesbridge/runes-bridge/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	dbm, err := db.NewDatabaseManager(config.Config{DBDriver: config.DBDriverSqlite, DbDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbm.Close() })
	return InitializeState(dbm)
}

func strPtr(s string) *string { return &s }

func TestDepositAddressUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t)

	require.NoError(t, s.SetDepositAddress(ctx, "0x1", "bc1pfirst"))
	require.NoError(t, s.SetDepositAddress(ctx, "0x1", "bc1psecond"))

	ok, err := s.IsDepositAddress(ctx, "bc1psecond")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.IsDepositAddress(ctx, "bc1pfirst")
	require.NoError(t, err)
	assert.False(t, ok)

	records, err := s.GetDepositAddresses(ctx, []string{"bc1psecond", "bc1punknown"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0x1", records[0].StarknetAddress)

	addr, err := s.GetDepositAddressByStarknet(ctx, "0x1")
	require.NoError(t, err)
	assert.Equal(t, "bc1psecond", addr)
	_, err = s.GetDepositAddressByStarknet(ctx, "0x2")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestBlacklist(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t)

	require.NoError(t, s.AddBlacklistedDeposit(ctx, "aa", "dust attack"))
	require.NoError(t, s.AddBlacklistedDeposit(ctx, "aa", "again"))

	ok, err := s.IsBlacklisted(ctx, "aa")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.IsBlacklisted(ctx, "bb")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDepositClaimTxVersioning(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t)
	txID := strings.Repeat("aa", 32)
	id := DepositIdentifier(txID, 1)
	assert.Equal(t, txID+":1", id)

	require.NoError(t, s.AppendDepositClaimTx(ctx, &db.DepositClaimTx{
		Identifier: id, RuneID: "840000:3", Amount: "10", TargetAddress: "0x1", TransactionHash: "0xold",
		Cursor: db.Cursor{From: 100},
	}))
	require.NoError(t, s.AppendDepositClaimTx(ctx, &db.DepositClaimTx{
		Identifier: id, RuneID: "840000:3", Amount: "10", TargetAddress: "0x1", TransactionHash: "0xnew",
		Cursor: db.Cursor{From: 110},
	}))

	hash, err := s.GetDepositClaimTxHash(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, "0xnew", hash)

	has, err := s.HasCurrentClaimTx(ctx, id)
	require.NoError(t, err)
	assert.True(t, has)

	claims, err := s.GetDepositClaimTxsByTarget(ctx, []string{"0x1"})
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "0xnew", claims[0].TransactionHash)

	// an older version cannot replace the current one
	err = s.AppendDepositClaimTx(ctx, &db.DepositClaimTx{
		Identifier: id, TargetAddress: "0x1", TransactionHash: "0xstale", Cursor: db.Cursor{From: 105},
	})
	assert.True(t, apperr.Is(err, apperr.KindPersistence))

	_, err = s.GetDepositClaimTxHash(ctx, strings.Repeat("bb", 32))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDepositClaimTxHashMatchesWholeTxID(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t)
	txID := strings.Repeat("ab", 32)
	require.NoError(t, s.AppendDepositClaimTx(ctx, &db.DepositClaimTx{
		Identifier: DepositIdentifier(txID, 0), TargetAddress: "0x1", TransactionHash: "0xsecret",
		Cursor: db.Cursor{From: 1},
	}))

	for _, pattern := range []string{"%", "_", strings.Repeat("_", 64), strings.Repeat("ab", 31) + "a%"} {
		_, err := s.GetDepositClaimTxHash(ctx, pattern)
		assert.True(t, apperr.Is(err, apperr.KindValidation), pattern)
	}

	_, err := s.GetDepositClaimTxHash(ctx, strings.Repeat("ab", 31)+"ac")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	hash, err := s.GetDepositClaimTxHash(ctx, strings.ToUpper(txID))
	require.NoError(t, err)
	assert.Equal(t, "0xsecret", hash)
}

func TestSaveClaimedDepositIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t)

	deposit := func(amount string) *db.ClaimedDeposit {
		return &db.ClaimedDeposit{
			Identifier: "aa:0", TxID: "aa", Vout: 0, RuneID: "1:0", RuneName: "DOG", RuneSpacedName: "DOG",
			Amount: amount, BitcoinDepositAddr: "bc1p", StarknetAddress: "0x1",
		}
	}
	require.NoError(t, s.SaveClaimedDeposit(ctx, deposit("5")))
	require.NoError(t, s.SaveClaimedDeposit(ctx, deposit("7")))

	got, err := s.GetClaimedDeposit(ctx, "aa:0")
	require.NoError(t, err)
	assert.Equal(t, "7", got.Amount)

	var count int64
	require.NoError(t, s.dbm.GetDB().Model(&db.ClaimedDeposit{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = s.GetClaimedDeposit(ctx, "zz:0")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestWithdrawalsJoinSubmissions(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t)

	require.NoError(t, s.AppendWithdrawalRequest(ctx, &db.WithdrawalRequest{
		Identifier: "w1", RuneID: "1:0", Amount: "3", TargetBitcoinAddress: "bc1qdest",
		CallerAddress: "0xcaller", TransactionHash: "0xsn1", Cursor: db.Cursor{From: 10},
	}))
	require.NoError(t, s.AppendWithdrawalRequest(ctx, &db.WithdrawalRequest{
		Identifier: "w2", RuneID: "1:0", Amount: "4", TargetBitcoinAddress: "bc1qother",
		CallerAddress: "0xcaller", TransactionHash: "0xsn2", Cursor: db.Cursor{From: 11},
	}))
	require.NoError(t, s.UpsertWithdrawalSubmission(ctx, &db.WithdrawalSubmission{Identifier: "w1", RequestID: strPtr("ab")}))
	require.NoError(t, s.UpsertWithdrawalSubmission(ctx, &db.WithdrawalSubmission{Identifier: "w1", RejectedStatus: strPtr("bad address")}))

	rows, err := s.GetCurrentWithdrawals(ctx, WithdrawalFilter{StarknetAddress: "0xcaller"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "w1", rows[0].Request.Identifier)
	require.NotNil(t, rows[0].Submission)
	assert.Nil(t, rows[0].Submission.RequestID)
	assert.Equal(t, "bad address", *rows[0].Submission.RejectedStatus)
	assert.Nil(t, rows[1].Submission)

	rows, err = s.GetCurrentWithdrawals(ctx, WithdrawalFilter{BitcoinAddress: "bc1qother"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "w2", rows[0].Request.Identifier)

	_, err = s.GetCurrentWithdrawals(ctx, WithdrawalFilter{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	row, err := s.GetCurrentWithdrawalByTxHash(ctx, "0xsn2")
	require.NoError(t, err)
	assert.Equal(t, "4", row.Request.Amount)

	_, err = s.GetCurrentWithdrawalByTxHash(ctx, "0xmissing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSupportedRunes(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t)

	require.NoError(t, s.SaveSupportedRune(ctx, &db.SupportedRune{
		ID: "840000:3", Name: "DOGGOTOTHEMOON", SpacedName: "DOG•GO•TO•THE•MOON", Number: 3, Symbol: "🐕", Divisibility: 5,
	}))
	require.NoError(t, s.SaveSupportedRune(ctx, &db.SupportedRune{
		ID: "1:0", Name: "UNCOMMONGOODS", SpacedName: "UNCOMMON•GOODS", Number: 0, Symbol: "⧉", Divisibility: 0,
	}))

	r, err := s.GetSupportedRune(ctx, "840000:3")
	require.NoError(t, err)
	assert.Equal(t, uint8(5), r.Divisibility)

	runes, err := s.GetSupportedRunes(ctx)
	require.NoError(t, err)
	require.Len(t, runes, 2)
	assert.Equal(t, "1:0", runes[0].ID)

	_, err = s.GetSupportedRune(ctx, "2:2")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
