package starknet

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"math/big"

	starkcurve "github.com/consensys/gnark-crypto/ecc/stark-curve"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fr"
)

const maxSeedRetries = 1000

var (
	curveOrder = fr.Modulus()
	// r, s and message hashes must stay below 2^251
	elementUpperBound = new(big.Int).Lsh(big.NewInt(1), 251)
)

type Signature struct {
	R *big.Int
	S *big.Int
}

// Signer produces deterministic (RFC 6979) ECDSA signatures on the Stark curve.
type Signer struct {
	priv *big.Int
	pub  starkcurve.G1Affine
}

func NewSigner(privKey string) (*Signer, error) {
	priv, err := ParseFelt(privKey)
	if err != nil {
		return nil, fmt.Errorf("invalid stark private key: %v", err)
	}
	if priv.Sign() == 0 || priv.Cmp(curveOrder) >= 0 {
		return nil, fmt.Errorf("stark private key out of range")
	}
	s := &Signer{priv: priv}
	s.pub.ScalarMultiplicationBase(priv)
	return s, nil
}

// PublicKey returns the affine coordinates of the signing key.
func (s *Signer) PublicKey() (x, y *big.Int) {
	return s.pub.X.BigInt(new(big.Int)), s.pub.Y.BigInt(new(big.Int))
}

// Sign signs msgHash. The nonce is retried with an increasing seed when it yields an out-of-range r or s.
func (s *Signer) Sign(msgHash *big.Int) (*Signature, error) {
	if msgHash.Sign() < 0 || msgHash.Cmp(elementUpperBound) >= 0 {
		return nil, fmt.Errorf("message hash %s out of range", FormatFelt(msgHash))
	}

	var seed *big.Int
	for i := 0; i < maxSeedRetries; i++ {
		k := generateK(msgHash, s.priv, seed)
		if sig, ok := signWithK(s.priv, msgHash, k); ok {
			return sig, nil
		}
		if seed == nil {
			seed = big.NewInt(1)
		} else {
			seed = new(big.Int).Add(seed, big.NewInt(1))
		}
	}
	return nil, fmt.Errorf("no valid nonce after %d attempts", maxSeedRetries)
}

func signWithK(priv, msgHash, k *big.Int) (*Signature, bool) {
	if k.Sign() == 0 {
		return nil, false
	}
	var point starkcurve.G1Affine
	point.ScalarMultiplicationBase(k)
	r := point.X.BigInt(new(big.Int))
	if r.Sign() == 0 || r.Cmp(elementUpperBound) >= 0 {
		return nil, false
	}

	kInv := new(big.Int).ModInverse(k, curveOrder)
	sv := new(big.Int).Mul(r, priv)
	sv.Add(sv, msgHash)
	sv.Mul(sv, kInv)
	sv.Mod(sv, curveOrder)
	if sv.Sign() == 0 || sv.Cmp(elementUpperBound) >= 0 {
		return nil, false
	}
	return &Signature{R: r, S: sv}, true
}

// Verify checks sig over msgHash against the public key (x, y).
func Verify(pubX, pubY, msgHash *big.Int, sig *Signature) bool {
	if sig == nil || sig.R.Sign() <= 0 || sig.S.Sign() <= 0 ||
		sig.R.Cmp(elementUpperBound) >= 0 || sig.S.Cmp(elementUpperBound) >= 0 {
		return false
	}
	var pub starkcurve.G1Affine
	pub.X.SetBigInt(pubX)
	pub.Y.SetBigInt(pubY)
	if !pub.IsOnCurve() {
		return false
	}

	w := new(big.Int).ModInverse(sig.S, curveOrder)
	if w == nil {
		return false
	}
	u1 := new(big.Int).Mul(msgHash, w)
	u1.Mod(u1, curveOrder)
	u2 := new(big.Int).Mul(sig.R, w)
	u2.Mod(u2, curveOrder)

	var acc starkcurve.G1Jac
	acc.JointScalarMultiplicationBase(&pub, u1, u2)
	var res starkcurve.G1Affine
	res.FromJacobian(&acc)
	if res.IsInfinity() {
		return false
	}
	return res.X.BigInt(new(big.Int)).Cmp(sig.R) == 0
}

// generateK is the RFC 6979 HMAC-SHA256 DRBG keyed by the private key and message,
// with the seed (leading zero bytes stripped) as additional data. Candidates are
// shifted right by 4 bits to the 252-bit order.
func generateK(msgHash, priv, seed *big.Int) *big.Int {
	x := Bytes32(priv)
	h := Bytes32(msgHash)
	var extra []byte
	if seed != nil {
		extra = seed.Bytes()
	}

	mac := func(key []byte, parts ...[]byte) []byte {
		m := hmac.New(sha256.New, key)
		for _, p := range parts {
			m.Write(p)
		}
		return m.Sum(nil)
	}

	k := make([]byte, 32)
	v := make([]byte, 32)
	for i := range v {
		v[i] = 0x01
	}
	k = mac(k, v, []byte{0x00}, x[:], h[:], extra)
	v = mac(k, v)
	k = mac(k, v, []byte{0x01}, x[:], h[:], extra)
	v = mac(k, v)

	for {
		v = mac(k, v)
		candidate := new(big.Int).SetBytes(v)
		candidate.Rsh(candidate, 4)
		if candidate.Sign() > 0 && candidate.Cmp(curveOrder) < 0 {
			return candidate
		}
		k = mac(k, v, []byte{0x00})
		v = mac(k, v)
	}
}
