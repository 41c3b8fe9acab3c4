package tests

import (
	"net/http"
	"net/url"
	"testing"
)

func TestCodeStatusRequiresAuth(t *testing.T) {

	// Act
	status, body := doJSON(t, http.MethodGet, "/v1/verifications/status?email=someone@example.com", nil, "")

	// Assert
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", status, body)
	}
}

func TestCodeStatusForbiddenRole(t *testing.T) {

	// Arrange
	token := operatorToken(t, "viewer")

	// Act
	status, body := doJSON(t, http.MethodGet, "/v1/verifications/status?email=someone@example.com", nil, token)

	// Assert
	if status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", status, body)
	}
}

func TestCodeStatus(t *testing.T) {

	// Arrange
	email := uniqueEmail("real-status")
	requestCode(t, email)
	token := operatorToken(t, "operator")

	// Act
	status, body := doJSON(t, http.MethodGet, "/v1/verifications/status?email="+url.QueryEscape(email), nil, token)

	// Assert
	if status != http.StatusOK {
		errEnv := decodeError(t, body)
		t.Fatalf("code status failed: status=%d message=%q", status, errEnv.Message)
	}
	var data struct {
		Email             string `json:"email"`
		Verified          bool   `json:"verified"`
		Attempts          int    `json:"attempts"`
		AttemptsRemaining int    `json:"attempts_remaining"`
		ExpiresAt         string `json:"expires_at"`
	}
	decodeSuccess(t, body, &data)
	if data.Email != email {
		t.Fatalf("expected status for %q, got %q", email, data.Email)
	}
	if data.Verified {
		t.Fatal("expected a fresh record to be unverified")
	}
	if data.Attempts != 0 || data.AttemptsRemaining != 5 {
		t.Fatalf("expected a fresh attempt counter, got %d used %d remaining", data.Attempts, data.AttemptsRemaining)
	}
	if data.ExpiresAt == "" {
		t.Fatal("expected an expiry timestamp")
	}
}

func TestCodeStatusUnknownEmail(t *testing.T) {

	// Arrange
	token := operatorToken(t, "operator")

	// Act
	status, body := doJSON(t, http.MethodGet, "/v1/verifications/status?email="+url.QueryEscape(uniqueEmail("real-status-missing")), nil, token)

	// Assert
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", status, body)
	}
}
