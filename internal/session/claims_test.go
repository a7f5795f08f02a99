package session

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-checked"))
	require.NoError(t, err)
	return token
}

func TestDecodeClaims(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	token := signedToken(t, jwt.MapClaims{
		"sub":   "acc-42",
		"name":  "Mai Tran",
		"scope": "booking admin",
		"exp":   exp.Unix(),
		"iss":   "https://id.example.com",
	})

	claims, ok := DecodeClaims(token)
	require.True(t, ok)
	assert.Equal(t, "acc-42", claims.AccountID())
	assert.Equal(t, "Mai Tran", claims.Name)
	assert.Equal(t, []string{"booking", "admin"}, claims.Scope)
	assert.True(t, claims.ExpiresAt.Equal(exp))
	assert.Equal(t, "https://id.example.com", claims.Issuer)
	assert.True(t, claims.HasScope("ADMIN"))
}

func TestDecodeClaims_DoesNotCheckExpiryOrSignature(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"sub": "acc-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	claims, ok := DecodeClaims(token)
	require.True(t, ok)
	assert.Equal(t, "acc-1", claims.Subject)
}

func TestDecodeClaims_AlternateClaimNames(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"accountId":   "acc-7",
		"unique_name": "linh",
		"scope":       []any{"booking", 3, ""},
	})

	claims, ok := DecodeClaims(token)
	require.True(t, ok)
	assert.Equal(t, "acc-7", claims.Subject)
	assert.Equal(t, "linh", claims.Name)
	assert.Equal(t, []string{"booking"}, claims.Scope)
}

func TestDecodeClaims_Malformed(t *testing.T) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"one segment", "abc"},
		{"two segments", "abc.def"},
		{"four segments", "a.b.c.d"},
		{"payload not base64", header + ".!!!.sig"},
		{"payload not json", header + "." + base64.RawURLEncoding.EncodeToString([]byte("nope")) + ".sig"},
		{"no subject", header + "." + base64.RawURLEncoding.EncodeToString([]byte(`{"name":"x"}`)) + ".sig"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, ok := DecodeClaims(tt.token)
			assert.False(t, ok)
			assert.Nil(t, claims)
		})
	}
}

func TestClaimsNilSafe(t *testing.T) {
	var c *Claims
	assert.Equal(t, "", c.AccountID())
	assert.False(t, c.HasScope("admin"))
}
