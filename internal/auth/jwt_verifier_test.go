package auth

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"casefile/internal/domain"
	"casefile/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims *models.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims() *models.Claims {
	return &models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role:         "authenticated",
		Email:        "ana@example.com",
		UserMetadata: map[string]any{"full_name": "Ana Ruiz"},
	}
}

func TestHMACVerifier_VerifyToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	verifier, err := NewHMACVerifier(testSecret, logger)
	require.NoError(t, err)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	anon := validClaims()
	anon.Role = "anon"
	noSubject := validClaims()
	noSubject.Subject = ""

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid", sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()), false},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims()), true},
		{"wrong algorithm", sign(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims()), true},
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired), true},
		{"anonymous role", sign(t, jwt.SigningMethodHS256, []byte(testSecret), anon), true},
		{"missing subject", sign(t, jwt.SigningMethodHS256, []byte(testSecret), noSubject), true},
		{"garbage", "not-a-token", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := verifier.VerifyToken(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrUnauthorized)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-1", claims.GetUserID())
			assert.Equal(t, "Ana Ruiz", claims.GetDisplayName())
		})
	}
}

func TestNewVerifiers_RejectEmptyConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewHMACVerifier("", logger)
	assert.Error(t, err)

	_, err = NewJWTVerifier("", logger)
	assert.Error(t, err)
}

func TestClaims_GetDisplayName(t *testing.T) {
	tests := []struct {
		name   string
		claims models.Claims
		want   string
	}{
		{"full name", models.Claims{UserMetadata: map[string]any{"full_name": "Ana"}}, "Ana"},
		{"name", models.Claims{UserMetadata: map[string]any{"name": "Ben"}}, "Ben"},
		{"email fallback", models.Claims{Email: "c@example.com"}, "c@example.com"},
		{"subject fallback", models.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u-9"}}, "u-9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.GetDisplayName())
		})
	}
}
