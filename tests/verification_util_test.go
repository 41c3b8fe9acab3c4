package tests

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
	"github.com/shandysiswandi/goverify/internal/pkg/jwt"
)

const defaultJWTSecret = "please-change-me-0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

// operatorToken signs a short-lived token with the shared secret, the same
// way an operator console would. The secret must match the running server's
// jwt.secret; override it with GOVERIFY_JWT_SECRET.
func operatorToken(t *testing.T, role string) string {
	t.Helper()

	secret := strings.TrimSpace(os.Getenv("GOVERIFY_JWT_SECRET"))
	if secret == "" {
		secret = defaultJWTSecret
	}

	now := time.Now()
	claims := jwt.Claims{
		RegisteredClaims: libJWT.RegisteredClaims{
			ID:        fmt.Sprintf("real-%d", now.UnixNano()),
			Subject:   "real-operator@example.com",
			Issuer:    "goverify",
			Audience:  libJWT.ClaimStrings{"goverify"},
			IssuedAt:  libJWT.NewNumericDate(now),
			NotBefore: libJWT.NewNumericDate(now),
			ExpiresAt: libJWT.NewNumericDate(now.Add(10 * time.Minute)),
		},
		Role: role,
	}

	token, err := libJWT.NewWithClaims(libJWT.SigningMethodHS512, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign operator token: %v", err)
	}

	return token
}

func requestCode(t *testing.T, email string) {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, "/v1/verifications", map[string]string{"email": email}, "")
	if status != http.StatusOK {
		errEnv := decodeError(t, body)
		t.Fatalf("request code failed: status=%d message=%q", status, errEnv.Message)
	}
}
