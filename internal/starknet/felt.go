package starknet

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/shopspring/decimal"
)

const (
	// maxSymbolBytes keeps the encoded symbol inside a u128
	maxSymbolBytes = 16
	txIDHexLen     = 64
)

var (
	fieldPrime = fp.Modulus()
	two128     = new(big.Int).Lsh(big.NewInt(1), 128)
	two256     = new(big.Int).Lsh(big.NewInt(1), 256)
)

// Uint256 is the Cairo u256 layout: two 128-bit limbs.
type Uint256 struct {
	Low  *big.Int
	High *big.Int
}

// SplitUint256 returns (n mod 2^128, n / 2^128).
func SplitUint256(n *big.Int) (Uint256, error) {
	if n.Sign() < 0 || n.Cmp(two256) >= 0 {
		return Uint256{}, fmt.Errorf("value %s does not fit in u256", n.String())
	}
	high, low := new(big.Int).QuoRem(n, two128, new(big.Int))
	return Uint256{Low: low, High: high}, nil
}

// ParseFelt accepts a 0x-prefixed hex or a decimal string and checks it is a field element.
func ParseFelt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty field element")
	}
	n := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		_, ok = n.SetString(s[2:], 16)
	} else {
		_, ok = n.SetString(s, 10)
	}
	if !ok {
		return nil, fmt.Errorf("invalid field element %q", s)
	}
	if n.Sign() < 0 || n.Cmp(fieldPrime) >= 0 {
		return nil, fmt.Errorf("field element %q out of range", s)
	}
	return n, nil
}

// FormatFelt renders a field element as 0x-prefixed lowercase hex.
func FormatFelt(n *big.Int) string {
	return fmt.Sprintf("%#x", n)
}

// NormalizeAddress gives a starknet address its canonical textual form.
func NormalizeAddress(s string) (string, error) {
	n, err := ParseFelt(s)
	if err != nil {
		return "", err
	}
	return FormatFelt(n), nil
}

// Bytes32 serializes a field element as 32 bytes big-endian.
func Bytes32(n *big.Int) [32]byte {
	var out [32]byte
	n.FillBytes(out[:])
	return out
}

// EncodeSymbol packs the UTF-8 bytes of a rune symbol little-endian: sum(byte[i] * 256^i).
func EncodeSymbol(symbol string) (*big.Int, error) {
	b := []byte(symbol)
	if len(b) == 0 {
		return nil, fmt.Errorf("empty rune symbol")
	}
	if len(b) > maxSymbolBytes {
		return nil, fmt.Errorf("rune symbol %q longer than %d bytes", symbol, maxSymbolBytes)
	}
	le := make([]byte, len(b))
	for i := range b {
		le[len(b)-1-i] = b[i]
	}
	return new(big.Int).SetBytes(le), nil
}

// ParseTxID reads a 64-hex-char bitcoin txid as a big-endian integer and splits it.
func ParseTxID(txID string) (Uint256, error) {
	if len(txID) != txIDHexLen {
		return Uint256{}, fmt.Errorf("tx id %q must be %d hex chars", txID, txIDHexLen)
	}
	raw, err := hex.DecodeString(txID)
	if err != nil {
		return Uint256{}, fmt.Errorf("tx id %q is not hex: %v", txID, err)
	}
	return SplitUint256(new(big.Int).SetBytes(raw))
}

// ScaleAmount converts a decimal display amount into base units. Any fractional remainder is rejected.
func ScaleAmount(amount string, divisibility uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %v", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", amount)
	}
	scaled := d.Shift(int32(divisibility))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d decimals", amount, divisibility)
	}
	n := scaled.BigInt()
	if n.Cmp(two256) >= 0 {
		return nil, fmt.Errorf("amount %q does not fit in u256", amount)
	}
	return n, nil
}
