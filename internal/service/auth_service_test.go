package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raveone/lms-api/internal/models"
	appErrors "github.com/raveone/lms-api/pkg/errors"
)

func signToken(t *testing.T, secret string, claims models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() models.JWTClaims {
	now := time.Now()
	return models.JWTClaims{
		UserID: "STU-1",
		Role:   models.RoleStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "raveone-identity",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret", Issuer: "raveone-identity"}, nil)

	claims, err := svc.ValidateToken(signToken(t, "secret", validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "STU-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceRejectsBadTokens(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret", Issuer: "raveone-identity"}, nil)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "someone-else"

	anonymous := validClaims()
	anonymous.UserID = ""

	cases := map[string]string{
		"wrong secret": signToken(t, "other", validClaims()),
		"expired":      signToken(t, "secret", expired),
		"wrong issuer": signToken(t, "secret", wrongIssuer),
		"no identity":  signToken(t, "secret", anonymous),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
		})
	}
}
