package btc

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	log "github.com/sirupsen/logrus"
)

// BTCRPCService answers the node queries the bridge needs
type BTCRPCService struct {
	client *rpcclient.Client
}

func NewBTCRPCService(client *rpcclient.Client) *BTCRPCService {
	return &BTCRPCService{
		client: client,
	}
}

// GetBlockConfirmations returns the confirmation count of the block with the given hash
func (s *BTCRPCService) GetBlockConfirmations(ctx context.Context, blockHashStr string) (int64, error) {
	blockHash, err := chainhash.NewHashFromStr(blockHashStr)
	if err != nil {
		return 0, fmt.Errorf("failed to parse block hash %s: %v", blockHashStr, err)
	}
	header, err := await(ctx, func() (*btcjson.GetBlockHeaderVerboseResult, error) {
		return s.client.GetBlockHeaderVerbose(blockHash)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get block header %s: %v", blockHashStr, err)
	}
	log.Debugf("Block %s at height %d has %d confirmations", blockHashStr, header.Height, header.Confirmations)
	return header.Confirmations, nil
}

// HasTransaction reports whether the node knows txHash; an unknown tx is not an error
func (s *BTCRPCService) HasTransaction(ctx context.Context, txHash *chainhash.Hash) (bool, error) {
	_, err := await(ctx, func() (*btcjson.TxRawResult, error) {
		return s.client.GetRawTransactionVerbose(txHash)
	})
	if err == nil {
		return true, nil
	}
	var rpcErr *btcjson.RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == btcjson.ErrRPCNoTxInfo {
		return false, nil
	}
	return false, fmt.Errorf("failed to get raw transaction %s: %v", txHash, err)
}

// GetChainTip returns the best block hash and its height
func (s *BTCRPCService) GetChainTip(ctx context.Context) (*chainhash.Hash, int32, error) {
	hash, err := await(ctx, s.client.GetBestBlockHash)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get best block hash: %v", err)
	}
	header, err := await(ctx, func() (*btcjson.GetBlockHeaderVerboseResult, error) {
		return s.client.GetBlockHeaderVerbose(hash)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get block header %s: %v", hash, err)
	}
	return hash, header.Height, nil
}

// await runs a blocking rpcclient call and gives up when ctx is done
func await[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		val, err := call()
		ch <- result{val: val, err: err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		return res.val, res.err
	}
}
