package withdrawal

import (
	"context"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/runesbridge/runes-bridge/internal/apperr"
	"github.com/runesbridge/runes-bridge/internal/config"
	"github.com/runesbridge/runes-bridge/internal/db"
	"github.com/runesbridge/runes-bridge/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	knownTxID   = "f907189b2486178751aca399d7ad7a06deb9d36086c3efc61e5cadadf32b3188"
	knownRawTx  = "02000000000101c33f58055925205fe7ecf23f37323d85ac0c86cd07ff2a5ddef9e24fcf5efbb80200000000fdffffff03e803000000000000160014240cbf5ca7c69e2f79c27dc2eb0fc58853b0aff300000000000000001a6a1847545430f39fd6e51aad88f6f4ce6ab8827279cfffb92266204e000000000000160014059ce0647de86cf966dfa4656a08530eb8f267720247304402207bf76a20f86c8ca8f167dfd22334323da2077037f1694f220c53f153596baad102206b2ab20e207bbd10dabb3f6fb64aad89825ac48635b6b9e5531d1235523119a601210361e82e71277ea205814b1cb69777abe5fc417c03d4d39829cefb8f92da08b1fc00000000"
	unknownTxID = "1111111111111111111111111111111111111111111111111111111111111111"
	caller      = "0xcaller"
	receiver    = "bc1qreceiver"
)

type fakeTxLookup struct {
	known map[string]bool
	err   error
}

func (f *fakeTxLookup) HasTransaction(ctx context.Context, txHash *chainhash.Hash) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.known[txHash.String()], nil
}

func strPtr(s string) *string { return &s }

func newTestTracker(t *testing.T) (*Tracker, *state.State, *fakeTxLookup) {
	t.Helper()
	dbm, err := db.NewDatabaseManager(config.Config{DBDriver: config.DBDriverSqlite, DbDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbm.Close() })
	st := state.InitializeState(dbm)
	txs := &fakeTxLookup{known: map[string]bool{knownTxID: true}}
	return NewTracker(st, txs), st, txs
}

func addRequest(t *testing.T, st *state.State, identifier, snTxHash string, sub *db.WithdrawalSubmission) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.AppendWithdrawalRequest(ctx, &db.WithdrawalRequest{
		Identifier: identifier, RuneID: "1:0", Amount: "1", TargetBitcoinAddress: receiver,
		CallerAddress: caller, TransactionHash: snTxHash, Cursor: db.Cursor{From: 1},
	}))
	if sub != nil {
		sub.Identifier = identifier
		require.NoError(t, st.UpsertWithdrawalSubmission(ctx, sub))
	}
}

func TestStatusResolution(t *testing.T) {
	tracker, st, _ := newTestTracker(t)
	addRequest(t, st, "w1", "0xsn1", nil)
	addRequest(t, st, "w2", "0xsn2", &db.WithdrawalSubmission{RejectedStatus: strPtr("invalid address")})
	addRequest(t, st, "w3", "0xsn3", &db.WithdrawalSubmission{RequestID: strPtr(knownTxID)})
	addRequest(t, st, "w4", "0xsn4", &db.WithdrawalSubmission{RequestID: strPtr(knownRawTx)})
	addRequest(t, st, "w5", "0xsn5", &db.WithdrawalSubmission{RequestID: strPtr(unknownTxID)})
	addRequest(t, st, "w6", "0xsn6", &db.WithdrawalSubmission{RequestID: strPtr("garbage")})
	addRequest(t, st, "w7", "0xsn7", &db.WithdrawalSubmission{})

	statuses, err := tracker.Status(context.Background(), Filter{StarknetAddress: caller})
	require.NoError(t, err)
	require.Len(t, statuses, 7)

	expected := []string{
		db.WITHDRAW_STATUS_IN_REVIEW,
		db.WITHDRAW_STATUS_REJECTED,
		db.WITHDRAW_STATUS_SUBMITTED,
		db.WITHDRAW_STATUS_SUBMITTED,
		db.WITHDRAW_STATUS_IN_REVIEW,
		db.WITHDRAW_STATUS_IN_REVIEW,
		db.WITHDRAW_STATUS_IN_REVIEW,
	}
	for i, status := range statuses {
		assert.Equal(t, expected[i], status.Status, "request %s", status.SnTxHash)
	}
	assert.Equal(t, "invalid address", *statuses[1].Reason)
	assert.Equal(t, knownTxID, *statuses[2].BtcTxID)
	assert.Equal(t, knownTxID, *statuses[3].BtcTxID)
	assert.Nil(t, statuses[4].BtcTxID)
}

func TestRejectionTakesPrecedence(t *testing.T) {
	tracker, st, _ := newTestTracker(t)
	addRequest(t, st, "w1", "0xsn1", &db.WithdrawalSubmission{
		RequestID:      strPtr(knownTxID),
		RejectedStatus: strPtr("dust"),
	})

	status, err := tracker.StatusByStarknetTx(context.Background(), "0xsn1")
	require.NoError(t, err)
	assert.Equal(t, db.WITHDRAW_STATUS_REJECTED, status.Status)
	assert.Equal(t, "dust", *status.Reason)
	assert.Nil(t, status.BtcTxID)
}

func TestStatusFilterValidation(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.Status(ctx, Filter{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = tracker.Status(ctx, Filter{BitcoinAddress: receiver, StarknetAddress: caller})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	statuses, err := tracker.Status(ctx, Filter{BitcoinAddress: receiver})
	require.NoError(t, err)
	assert.Empty(t, statuses)
}

func TestStatusByStarknetTxNotFound(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	_, err := tracker.StatusByStarknetTx(context.Background(), "0xmissing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestNodeFailureIsExternal(t *testing.T) {
	tracker, st, txs := newTestTracker(t)
	txs.err = errors.New("connection reset")
	addRequest(t, st, "w1", "0xsn1", &db.WithdrawalSubmission{RequestID: strPtr(knownTxID)})

	_, err := tracker.Status(context.Background(), Filter{BitcoinAddress: receiver})
	assert.True(t, apperr.Is(err, apperr.KindExternalService))
}

func TestSubmittedWithdrawalIsAnnouncedOnce(t *testing.T) {
	tracker, st, _ := newTestTracker(t)
	events := make(chan interface{}, 8)
	st.EventBus.Subscribe(state.WithdrawalResolved, events)
	addRequest(t, st, "w1", "0xsn1", &db.WithdrawalSubmission{RequestID: strPtr(knownTxID)})
	addRequest(t, st, "w2", "0xsn2", &db.WithdrawalSubmission{RequestID: strPtr(unknownTxID)})

	for i := 0; i < 3; i++ {
		_, err := tracker.Status(context.Background(), Filter{StarknetAddress: caller})
		require.NoError(t, err)
		_, err = tracker.StatusByStarknetTx(context.Background(), "0xsn1")
		require.NoError(t, err)
	}

	require.Len(t, events, 1)
	event := (<-events).(state.WithdrawalResolvedEvent)
	assert.Equal(t, "w1", event.Identifier)
	assert.Equal(t, db.WITHDRAW_STATUS_SUBMITTED, event.Status)
}
