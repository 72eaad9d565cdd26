package service

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
)

func signToken(t *testing.T, secret string, claims *models.JWTClaims, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims(userID string) *models.JWTClaims {
	now := time.Now().UTC()
	return &models.JWTClaims{
		UserID: userID,
		Email:  "student@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "identity",
			Subject:   userID,
			Audience:  jwt.ClaimStrings{"attendance"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestValidateTokenAcceptsSignedToken(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "identity", Audience: "attendance"})
	token := signToken(t, "secret", validClaims("user-1"), jwt.SigningMethodHS256)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestValidateTokenFallsBackToSubject(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret"})
	claims := validClaims("")
	claims.Subject = "user-9"
	token := signToken(t, "secret", claims, jwt.SigningMethodHS256)

	parsed, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-9", parsed.UserID)
}

func TestValidateTokenRejections(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "identity", Audience: "attendance"})

	expired := validClaims("user-1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	wrongAudience := validClaims("user-1")
	wrongAudience.Audience = jwt.ClaimStrings{"grades"}

	wrongIssuer := validClaims("user-1")
	wrongIssuer.Issuer = "someone-else"

	anonymous := validClaims("")
	anonymous.Subject = ""

	cases := map[string]string{
		"garbage":        "not-a-token",
		"wrong secret":   signToken(t, "other", validClaims("user-1"), jwt.SigningMethodHS256),
		"wrong method":   signToken(t, "secret", validClaims("user-1"), jwt.SigningMethodHS512),
		"expired":        signToken(t, "secret", expired, jwt.SigningMethodHS256),
		"wrong audience": signToken(t, "secret", wrongAudience, jwt.SigningMethodHS256),
		"wrong issuer":   signToken(t, "secret", wrongIssuer, jwt.SigningMethodHS256),
		"no subject":     signToken(t, "secret", anonymous, jwt.SigningMethodHS256),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, http.StatusUnauthorized, appErr.Status)
		})
	}
}
