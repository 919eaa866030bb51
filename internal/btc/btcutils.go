package btc

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// ResolveTxID accepts either a txid or a hex-encoded raw transaction and returns the txid.
func ResolveTxID(ref string) (*chainhash.Hash, error) {
	if len(ref) == chainhash.MaxHashStringSize {
		return chainhash.NewHashFromStr(ref)
	}

	rawTx, err := hex.DecodeString(ref)
	if err != nil {
		return nil, fmt.Errorf("request id is neither a txid nor raw tx hex: %v", err)
	}
	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(rawTx)); err != nil {
		return nil, fmt.Errorf("failed to deserialize raw transaction: %v", err)
	}
	hash := tx.TxHash()
	return &hash, nil
}
