package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "swiftremit/pkg/domain"
	dErrors "swiftremit/pkg/domain-errors"
)

var jwtService = NewJWTService("test-signing-key-0123456789", "test-issuer")
var principal = id.Principal("GSENDER")
var expiresIn = time.Hour

func Test_GenerateToken(t *testing.T) {
	token, err := jwtService.GenerateToken(principal, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, principal.String(), claims.Subject)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_GenerateToken_RequiresPrincipal(t *testing.T) {
	_, err := jwtService.GenerateToken("", expiresIn)
	require.Error(t, err)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateToken(principal, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.Equal(t, "token has expired", dErrors.MessageOf(err))
}

func Test_ValidateToken_WrongIssuer(t *testing.T) {
	other := NewJWTService("test-signing-key-0123456789", "someone-else")
	token, err := other.GenerateToken(principal, expiresIn)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewJWTService("another-signing-key-987654", "test-issuer")
	token, err := other.GenerateToken(principal, expiresIn)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidatePrincipalToken(t *testing.T) {
	token, err := jwtService.GenerateToken(principal, expiresIn)
	require.NoError(t, err)

	got, err := jwtService.ValidatePrincipalToken(token)
	require.NoError(t, err)
	assert.Equal(t, principal, got)
}

func Test_ValidatePrincipalToken_NoSubject(t *testing.T) {
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "test-issuer",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	token, err := raw.SignedString([]byte("test-signing-key-0123456789"))
	require.NoError(t, err)

	_, err = jwtService.ValidatePrincipalToken(token)
	assert.Equal(t, "token has no subject", dErrors.MessageOf(err))
}
