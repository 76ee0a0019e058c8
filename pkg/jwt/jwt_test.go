package jwt

import (
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTService("secret", time.Minute)

	token, err := svc.GenerateToken("@alice:example.org", RoleOwner)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "@alice:example.org", claims.AccountID)
	assert.Equal(t, RoleOwner, claims.Role)
	assert.Equal(t, "@alice:example.org", claims.Subject)
}

func TestJWTService_EmptyAccount(t *testing.T) {
	_, err := NewJWTService("secret", time.Minute).GenerateToken("", RoleOwner)
	assert.Error(t, err)
}

func TestJWTService_ValidateInvalidToken(t *testing.T) {
	svc := NewJWTService("secret", time.Minute)

	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewJWTService("other-secret", time.Minute)
	token, err := other.GenerateToken("@bob:example.org", RoleOwner)
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_ValidateExpiredToken(t *testing.T) {
	svc := NewJWTService("secret", -time.Second)
	token, err := svc.GenerateToken("@alice:example.org", RoleOwner)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_RejectsNonHMAC(t *testing.T) {
	svc := NewJWTService("secret", time.Minute)
	token := gjwt.NewWithClaims(gjwt.SigningMethodNone, &Claims{AccountID: "@a:x"})
	raw, err := token.SignedString(gjwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_SignError(t *testing.T) {
	orig := signJWTToken
	t.Cleanup(func() { signJWTToken = orig })
	signJWTToken = func(*gjwt.Token, []byte) (string, error) { return "", errors.New("sign failed") }

	_, err := NewJWTService("secret", time.Minute).GenerateToken("@a:x", RoleOwner)
	assert.ErrorContains(t, err, "sign failed")
}
