package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "alice", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "qabbs", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestTokensAreUnique(t *testing.T) {
	a, err := GenerateToken(1, "alice", time.Hour)
	require.NoError(t, err)
	b, err := GenerateToken(1, "alice", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestParseTokenRejects(t *testing.T) {
	expired, err := GenerateToken(1, "alice", -time.Minute)
	require.NoError(t, err)

	anonymous, err := GenerateToken(0, "nobody", time.Hour)
	require.NoError(t, err)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"expired":   expired,
		"no user":   anonymous,
		"foreign":   foreign,
		"unsigned":  unsigned,
		"malformed": "not-a-jwt",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(token)
			assert.Error(t, err)
		})
	}
}

func TestSessionTTLDefault(t *testing.T) {
	assert.Equal(t, 72*time.Hour, SessionTTL())
}
