package tests

import (
	"net/http"
	"strconv"
	"testing"
)

func TestRequestCode(t *testing.T) {

	// Arrange
	payload := map[string]string{"email": uniqueEmail("real-request")}

	// Act
	status, body := doJSON(t, http.MethodPost, "/v1/verifications", payload, "")

	// Assert
	if status != http.StatusOK {
		errEnv := decodeError(t, body)
		t.Fatalf("request code failed: status=%d message=%q", status, errEnv.Message)
	}
	env := decodeSuccess(t, body, nil)
	if env.Message == "" {
		t.Fatal("expected a confirmation message")
	}
}

func TestRequestCodeInvalidEmail(t *testing.T) {

	// Arrange
	payload := map[string]string{"email": "not-an-email"}

	// Act
	status, body := doJSON(t, http.MethodPost, "/v1/verifications", payload, "")

	// Assert
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", status, body)
	}
	errEnv := decodeError(t, body)
	if len(errEnv.Error) == 0 {
		t.Fatal("expected field errors for the email address")
	}
}

func TestRequestCodeThrottled(t *testing.T) {

	// Arrange
	email := uniqueEmail("real-throttle")
	requestCode(t, email)

	// Act
	resp, body := doRequest(t, http.MethodPost, "/v1/verifications", map[string]string{"email": email}, "")

	// Assert
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", resp.StatusCode, body)
	}
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		t.Fatal("expected a Retry-After header")
	}
	seconds, err := strconv.Atoi(retryAfter)
	if err != nil || seconds < 1 || seconds > 60 {
		t.Fatalf("expected Retry-After within the cooldown window, got %q", retryAfter)
	}
}
