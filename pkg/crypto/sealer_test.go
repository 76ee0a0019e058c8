package crypto

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer("device-secret")
	require.NoError(t, err)

	sealed, err := s.Seal([]byte(`[{"daoId":"!dao"}]`))
	require.NoError(t, err)
	assert.NotContains(t, sealed, "daoId")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, `[{"daoId":"!dao"}]`, string(plain))
}

func TestSealer_WrongSecret(t *testing.T) {
	a, err := NewSealer("one")
	require.NoError(t, err)
	b, err := NewSealer("two")
	require.NoError(t, err)

	sealed, err := a.Seal([]byte("payload"))
	require.NoError(t, err)
	_, err = b.Open(sealed)
	assert.Error(t, err)
}

func TestSealer_Errors(t *testing.T) {
	_, err := NewSealer("")
	assert.Error(t, err)

	s, err := NewSealer("secret")
	require.NoError(t, err)

	_, err = s.Open("zz")
	assert.Error(t, err)
	_, err = s.Open("abcd")
	assert.ErrorIs(t, err, ErrCiphertextTooShort)

	orig := randomRead
	t.Cleanup(func() { randomRead = orig })
	randomRead = func([]byte) (int, error) { return 0, errors.New("nonce failed") }
	_, err = s.Seal([]byte("x"))
	assert.ErrorContains(t, err, "nonce failed")
}
