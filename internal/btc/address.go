package btc

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/runesbridge/runes-bridge/internal/apperr"
	"github.com/runesbridge/runes-bridge/internal/starknet"
)

const maxFallbackTweaks = 16

// fallbackTweakTag separates the retry tweaks from the BIP-341 TapTweak domain
var fallbackTweakTag = []byte("RunesBridge/DepositTweak")

// DepositAddressDeriver maps a starknet account to its dedicated taproot deposit address.
// It is pure and safe for concurrent use.
type DepositAddressDeriver struct {
	internalKey *btcec.PublicKey
	params      *chaincfg.Params
}

// NewDepositAddressDeriver takes the bridge extended public key; its own key is the taproot internal key.
func NewDepositAddressDeriver(xpub string, params *chaincfg.Params) (*DepositAddressDeriver, error) {
	extKey, err := hdkeychain.NewKeyFromString(xpub)
	if err != nil {
		return nil, fmt.Errorf("invalid bitcoin extended public key: %v", err)
	}
	pub, err := extKey.ECPubKey()
	if err != nil {
		return nil, fmt.Errorf("failed to read extended public key: %v", err)
	}
	// lift to the even-Y point, x-only keys assume it
	internal, err := schnorr.ParsePubKey(schnorr.SerializePubKey(pub))
	if err != nil {
		return nil, fmt.Errorf("failed to normalize internal key: %v", err)
	}
	return &DepositAddressDeriver{internalKey: internal, params: params}, nil
}

// Derive returns the deposit address of accountID (hex or decimal starknet address).
func (d *DepositAddressDeriver) Derive(accountID string) (string, error) {
	account, err := starknet.ParseFelt(accountID)
	if err != nil {
		return "", apperr.Validation("invalid starknet address %q: %v", accountID, err)
	}
	account32 := starknet.Bytes32(account)
	xonly := schnorr.SerializePubKey(d.internalKey)

	tweak := chainhash.TaggedHash(chainhash.TagTapTweak, xonly, account32[:])
	outputKey, ok := tweakPublicKey(d.internalKey, tweak[:])
	for i := uint32(1); !ok && i <= maxFallbackTweaks; i++ {
		var counter [4]byte
		binary.BigEndian.PutUint32(counter[:], i)
		tweak = chainhash.TaggedHash(fallbackTweakTag, xonly, account32[:], counter[:])
		outputKey, ok = tweakPublicKey(d.internalKey, tweak[:])
	}
	if !ok {
		return "", apperr.Crypto(nil, "no valid tweak for account %s", starknet.FormatFelt(account))
	}

	// key-path only: commit the output key to an empty script tree
	taprootKey := txscript.ComputeTaprootKeyNoScript(outputKey)
	addr, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(taprootKey), d.params)
	if err != nil {
		return "", apperr.Crypto(err, "failed to encode taproot address")
	}
	return addr.EncodeAddress(), nil
}

// tweakPublicKey computes P + t*G. It fails when t is not a valid scalar or the sum is infinity.
func tweakPublicKey(internal *btcec.PublicKey, tweak []byte) (*btcec.PublicKey, bool) {
	var t btcec.ModNScalar
	if overflow := t.SetByteSlice(tweak); overflow || t.IsZero() {
		return nil, false
	}

	var p, tG, q btcec.JacobianPoint
	internal.AsJacobian(&p)
	btcec.ScalarBaseMultNonConst(&t, &tG)
	btcec.AddNonConst(&p, &tG, &q)
	if (q.X.IsZero() && q.Y.IsZero()) || q.Z.IsZero() {
		return nil, false
	}
	q.ToAffine()
	return btcec.NewPublicKey(&q.X, &q.Y), true
}

// IsTaprootAddress reports whether addr decodes to a P2TR address on params.
func IsTaprootAddress(addr string, params *chaincfg.Params) bool {
	decoded, err := btcutil.DecodeAddress(addr, params)
	if err != nil {
		return false
	}
	_, ok := decoded.(*btcutil.AddressTaproot)
	return ok && decoded.IsForNet(params)
}
