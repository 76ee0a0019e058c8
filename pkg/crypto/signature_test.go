package crypto

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func flipFirst(s string) string {
	if s[0] == '0' {
		return "1" + s[1:]
	}
	return "0" + s[1:]
}

func TestSign_EmptyInputIsKeccakOfEmpty(t *testing.T) {
	assert.Equal(t, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", Sign("", "", ""))
}

func TestSignAndVerify(t *testing.T) {
	keys, err := NewKeyring().Derive(abandonPhrase)
	require.NoError(t, err)

	msg := "PoC: Research|Acme minting|0xabc|5|1700000000000|0000abcd"
	sig := Sign(keys.PrivateKey, keys.Address, msg)
	assert.Len(t, sig, 64)
	assert.False(t, strings.HasPrefix(sig, "0x"))
	assert.Equal(t, sig, Sign(keys.PrivateKey, keys.Address, msg))

	assert.True(t, Verify(keys.PrivateKey, keys.Address, msg, sig))
	assert.True(t, Verify(keys.PrivateKey, keys.Address, msg, "0x"+strings.ToUpper(sig)))
}

func TestVerify_SingleByteChange(t *testing.T) {
	keys, err := NewKeyring().Derive(abandonPhrase)
	require.NoError(t, err)

	msg := "transfer|0x1|0x2|10"
	sig := Sign(keys.PrivateKey, keys.Address, msg)

	assert.False(t, Verify(keys.PrivateKey, keys.Address, "transfer|0x1|0x2|11", sig))
	assert.False(t, Verify(keys.PrivateKey, keys.Address+"0", msg, sig))
	assert.False(t, Verify(flipFirst(keys.PrivateKey), keys.Address, msg, sig))
	assert.False(t, Verify(keys.PrivateKey, keys.Address, msg, UnsignedSignature))
}

func TestStringHash(t *testing.T) {
	assert.Equal(t, "00000000", StringHash(""))
	assert.Equal(t, "00000061", StringHash("a"))
	assert.Equal(t, "00000c21", StringHash("ab"))
	assert.Equal(t, StringHash("0xabc-10-1700000000000"), StringHash("0xabc-10-1700000000000"))
	assert.NotEqual(t, StringHash("0xabc-10-1700000000000"), StringHash("0xabc-10-1700000000001"))
}

func TestRandomTxHash(t *testing.T) {
	h, err := RandomTxHash()
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-z]{6}$`, h)
}

func TestRandomTxHash_Deterministic(t *testing.T) {
	orig := randomRead
	t.Cleanup(func() { randomRead = orig })
	randomRead = func(b []byte) (int, error) {
		for i := range b {
			b[i] = byte(i + 10)
		}
		return len(b), nil
	}

	h, err := RandomTxHash()
	require.NoError(t, err)
	assert.Equal(t, "abcdef", h)
}

func TestRandomTxHash_ReadError(t *testing.T) {
	orig := randomRead
	t.Cleanup(func() { randomRead = orig })
	randomRead = func([]byte) (int, error) { return 0, errors.New("rand failed") }

	_, err := RandomTxHash()
	assert.ErrorContains(t, err, "rand failed")
}

func TestSign_KnownVector(t *testing.T) {
	const (
		priv = "1ab42cc412b618bdea3a599e3c9bae199ebf030895b039e9db1e30dafb12b727"
		addr = "0xb1d85680ca93eba668e286aa4dfebb6a9af151f4"
	)
	assert.Equal(t, "850c10657cb01ffcc20e36961140524a510b2efb1c7e354fd3538e7e56f52465", Sign(priv, addr, "hello ledger"))
}
