package starknet

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	n, err := ParseFelt(s)
	require.NoError(t, err)
	return n
}

func assertFelt(t *testing.T, expected string, got *big.Int) {
	t.Helper()
	assert.Equal(t, FormatFelt(mustBig(t, expected)), FormatFelt(got))
}

func TestClaimCommitmentVector(t *testing.T) {
	txID, err := ParseTxID("a795ede3bec4b9095eb207bff4abacdbcdd1de065788d4ffb53b1ea3fe5d67fb")
	require.NoError(t, err)

	msg := ClaimMessage{
		RuneID:    big.NewInt(97),
		Amount:    Uint256{Low: big.NewInt(2500), High: big.NewInt(0)},
		AccountID: big.NewInt(504447201841),
		TxID:      txID,
	}
	hash := msg.Hash()
	assertFelt(t, "0x05b83a0441dd5eb9409a4f4bb3775fc7d420aed6abb307d11e59668acc192c3d", hash)

	signer, err := NewSigner("0x123")
	require.NoError(t, err)
	sig, err := signer.Sign(hash)
	require.NoError(t, err)
	assertFelt(t, "0x00823dd95547161bb6612384e59b9c041b97fe2c0c02bf521a0b8d8b449a05eb", sig.R)
	assertFelt(t, "0x06367b23138364e35314840bd0fd826626d1e9283e303d263655edee80e27487", sig.S)

	x, y := signer.PublicKey()
	assert.True(t, Verify(x, y, hash, sig))
}

func TestClaimCommitmentMultiByteSymbol(t *testing.T) {
	runeID, err := EncodeSymbol("🐕")
	require.NoError(t, err)
	txID, err := ParseTxID("bd51cd6d88a59456e2585c2dd61e51f91645dd071d33484d0015328f460057fc")
	require.NoError(t, err)

	msg := ClaimMessage{
		RuneID:    runeID,
		Amount:    Uint256{Low: big.NewInt(0x7a120), High: big.NewInt(0)},
		AccountID: mustBig(t, "0x403c80a49f16ed8ecf751f4b3ad62cc8f85ebeb2d40dc3b4377a089b438995d"),
		TxID:      txID,
	}
	hash := msg.Hash()
	assertFelt(t, "0x2ffb402c24b7680c0b8be3f25e6af70806c4a2b123ad3a43753cd2fddace83c", hash)

	signer, err := NewSigner("0x123")
	require.NoError(t, err)
	sig, err := signer.Sign(hash)
	require.NoError(t, err)
	assertFelt(t, "0x35517e49e7a1337428401645f05ee58f3be3d612a09732262875bf0a9c20a53", sig.R)
	assertFelt(t, "0x5d541de65ec78c7b2c667830a79f233f5c3aeef1fde771adaa21ad2a73a0251", sig.S)

	x, y := signer.PublicKey()
	assertFelt(t, "0x566d69d8c99f62bc71118399bab25c1f03719463eab8d6a444cd11ece131616", x)
	assertFelt(t, "0x7102b2c2008d662f7015d86fa1ae9cf6d169e2c40d7904f83c908443ca4d865", y)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	signer, err := NewSigner("0xabcdef")
	require.NoError(t, err)
	hash := Pedersen(big.NewInt(1), big.NewInt(2))
	sig, err := signer.Sign(hash)
	require.NoError(t, err)

	x, y := signer.PublicKey()
	require.True(t, Verify(x, y, hash, sig))

	other := new(big.Int).Add(hash, big.NewInt(1))
	assert.False(t, Verify(x, y, other, sig))
	assert.False(t, Verify(x, y, hash, &Signature{R: sig.R, S: new(big.Int).Add(sig.S, big.NewInt(1))}))
}

func TestSignIsDeterministic(t *testing.T) {
	signer, err := NewSigner("12345")
	require.NoError(t, err)
	hash := Pedersen(big.NewInt(7), big.NewInt(11))

	first, err := signer.Sign(hash)
	require.NoError(t, err)
	second, err := signer.Sign(hash)
	require.NoError(t, err)
	assert.Equal(t, FormatFelt(first.R), FormatFelt(second.R))
	assert.Equal(t, FormatFelt(first.S), FormatFelt(second.S))
}

func TestSignRejectsOutOfRangeHash(t *testing.T) {
	signer, err := NewSigner("0x123")
	require.NoError(t, err)
	_, err = signer.Sign(new(big.Int).Lsh(big.NewInt(1), 251))
	assert.Error(t, err)
}

func TestNewSignerRejectsBadKeys(t *testing.T) {
	for _, key := range []string{"", "0", "0xzz", "-5"} {
		_, err := NewSigner(key)
		assert.Error(t, err, key)
	}
}

func TestEncodeSymbol(t *testing.T) {
	testCases := []struct {
		symbol   string
		expected string
		wantErr  bool
	}{
		{symbol: "a", expected: "97"},
		{symbol: "🐕", expected: "2509283312"},
		{symbol: "ab", expected: "25185"},
		{symbol: "", wantErr: true},
		{symbol: "ABCDEFGHIJKLMNOPQ", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.symbol, func(t *testing.T) {
			got, err := EncodeSymbol(tc.symbol)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got.String())
		})
	}
}

func TestSplitUint256(t *testing.T) {
	txID, err := ParseTxID("bd51cd6d88a59456e2585c2dd61e51f91645dd071d33484d0015328f460057fc")
	require.NoError(t, err)
	assert.Equal(t, "29605767366663658861677795006692218876", txID.Low.String())
	assert.Equal(t, "251648833821019018272888897087823827449", txID.High.String())

	small, err := SplitUint256(big.NewInt(2500))
	require.NoError(t, err)
	assert.Equal(t, int64(2500), small.Low.Int64())
	assert.Equal(t, int64(0), small.High.Int64())

	_, err = SplitUint256(new(big.Int).Lsh(big.NewInt(1), 256))
	assert.Error(t, err)
	_, err = SplitUint256(big.NewInt(-1))
	assert.Error(t, err)
}

func TestParseTxIDRejectsMalformed(t *testing.T) {
	for _, txID := range []string{"", "abcd", "zz51cd6d88a59456e2585c2dd61e51f91645dd071d33484d0015328f460057fc"} {
		_, err := ParseTxID(txID)
		assert.Error(t, err, txID)
	}
}

func TestParseFelt(t *testing.T) {
	n, err := ParseFelt("504447201841")
	require.NoError(t, err)
	assert.Equal(t, int64(504447201841), n.Int64())

	n, err = ParseFelt("0x7573657231")
	require.NoError(t, err)
	assert.Equal(t, int64(504447201841), n.Int64())

	normalized, err := NormalizeAddress("0x0000007573657231")
	require.NoError(t, err)
	assert.Equal(t, "0x7573657231", normalized)

	_, err = ParseFelt(FormatFelt(fieldPrime))
	assert.Error(t, err)
	_, err = ParseFelt("not-a-number")
	assert.Error(t, err)
}

func TestScaleAmount(t *testing.T) {
	testCases := []struct {
		name         string
		amount       string
		divisibility uint8
		expected     string
		wantErr      bool
	}{
		{name: "integer", amount: "2500", divisibility: 0, expected: "2500"},
		{name: "decimals", amount: "1.5", divisibility: 2, expected: "150"},
		{name: "exact precision", amount: "0.00000001", divisibility: 8, expected: "1"},
		{name: "trailing zeros", amount: "12.3400", divisibility: 2, expected: "1234"},
		{name: "fractional remainder", amount: "1.234", divisibility: 2, wantErr: true},
		{name: "negative", amount: "-1", divisibility: 0, wantErr: true},
		{name: "garbage", amount: "12a", divisibility: 0, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ScaleAmount(tc.amount, tc.divisibility)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got.String())
		})
	}
}
