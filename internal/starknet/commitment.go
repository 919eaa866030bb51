package starknet

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	pedersenhash "github.com/consensys/gnark-crypto/ecc/stark-curve/pedersen-hash"
)

// Pedersen hashes two field elements with the Starknet Pedersen hash.
func Pedersen(a, b *big.Int) *big.Int {
	var ea, eb fp.Element
	ea.SetBigInt(a)
	eb.SetBigInt(b)
	h := pedersenhash.Pedersen(&ea, &eb)
	return h.BigInt(new(big.Int))
}

// ClaimMessage is the data a bridge claim commits to.
type ClaimMessage struct {
	RuneID    *big.Int
	Amount    Uint256
	AccountID *big.Int
	TxID      Uint256
}

// Hash is pedersen(pedersen(pedersen(rune_id, amount.low), account_id), tx_id.low).
// The bridge contract rebuilds the same chain, so the order and inputs are fixed.
func (m ClaimMessage) Hash() *big.Int {
	h := Pedersen(m.RuneID, m.Amount.Low)
	h = Pedersen(h, m.AccountID)
	return Pedersen(h, m.TxID.Low)
}
