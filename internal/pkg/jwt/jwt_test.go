package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := New("secret", time.Hour)

	token, err := svc.GenerateToken(7, "customer", "id")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "customer", claims.Role)
	assert.Equal(t, "id", claims.Locale)
}

func TestValidate_WrongSecret(t *testing.T) {
	token, err := New("a", time.Hour).GenerateToken(7, "admin", "")
	require.NoError(t, err)

	_, err = New("b", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Expired(t *testing.T) {
	token, err := New("a", -time.Minute).GenerateToken(7, "admin", "")
	require.NoError(t, err)

	_, err = New("a", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_MissingRole(t *testing.T) {
	claims := Claims{
		UserID: 3,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("a"))
	require.NoError(t, err)

	_, err = New("a", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}
