package goerror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: NewBusiness("not found", CodeNotFound), want: http.StatusNotFound},
		{name: "conflict", err: NewBusiness("already done", CodeConflict), want: http.StatusConflict},
		{name: "gone", err: NewBusiness("expired", CodeGone), want: http.StatusGone},
		{name: "locked", err: NewBusiness("locked", CodeLocked), want: http.StatusLocked},
		{name: "invalid code", err: NewBusiness("wrong code", CodeInvalidCode), want: http.StatusBadRequest},
		{name: "rate limited", err: NewRateLimited("slow down", 30), want: http.StatusTooManyRequests},
		{name: "unavailable", err: NewUnavailable(errors.New("dial"), "try later"), want: http.StatusServiceUnavailable},
		{name: "invalid input", err: NewInvalidInput(nil, "email", "must be valid"), want: http.StatusUnprocessableEntity},
		{name: "invalid format", err: NewInvalidFormat(), want: http.StatusBadRequest},
		{name: "server", err: NewServer(errors.New("boom")), want: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gerr *Error
			if !errors.As(tc.err, &gerr) {
				t.Fatalf("expected *Error, got %T", tc.err)
			}
			if got := gerr.StatusCode(); got != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, got)
			}
		})
	}
}

func TestNewRateLimited(t *testing.T) {
	err := NewRateLimited("Please wait before requesting another code", 42)

	var gerr *Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if gerr.RetryAfter() != 42 {
		t.Fatalf("expected retry after 42, got %d", gerr.RetryAfter())
	}
	if got := gerr.Fields()["retry_after_seconds"]; got != "42" {
		t.Fatalf("expected retry_after_seconds field 42, got %q", got)
	}
}

func TestNewRateLimitedFloorsToOneSecond(t *testing.T) {
	err := NewRateLimited("Please wait", 0)

	var gerr *Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if gerr.RetryAfter() != 1 {
		t.Fatalf("expected retry after floored to 1, got %d", gerr.RetryAfter())
	}
}

func TestNewBusinessDataFields(t *testing.T) {
	err := NewBusinessData("Invalid verification code", CodeInvalidCode, "attempts_remaining", "3")

	var gerr *Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if gerr.Msg() != "Invalid verification code" {
		t.Fatalf("unexpected message %q", gerr.Msg())
	}
	if got := gerr.Fields()["attempts_remaining"]; got != "3" {
		t.Fatalf("expected attempts_remaining 3, got %q", got)
	}
}

func TestErrorsAsThroughWrapping(t *testing.T) {
	inner := NewBusiness("expired", CodeGone)
	wrapped := fmt.Errorf("verify: %w", inner)

	var gerr *Error
	if !errors.As(wrapped, &gerr) {
		t.Fatalf("expected to unwrap *Error from %v", wrapped)
	}
	if gerr.Code() != CodeGone {
		t.Fatalf("expected CodeGone, got %v", gerr.Code())
	}
}

func TestErrorMessagePrecedence(t *testing.T) {
	underlying := errors.New("pg: connection refused")
	withErr := &Error{err: underlying, msg: "Internal server error"}
	if withErr.Error() != underlying.Error() {
		t.Fatalf("expected underlying error text, got %q", withErr.Error())
	}

	msgOnly := &Error{msg: "Please wait"}
	if msgOnly.Error() != "Please wait" {
		t.Fatalf("expected message text, got %q", msgOnly.Error())
	}
}

func TestUnwrap(t *testing.T) {
	underlying := errors.New("dial tcp: refused")
	err := NewUnavailable(underlying, "Verification service unavailable")

	if !errors.Is(err, underlying) {
		t.Fatal("expected errors.Is to reach the underlying error")
	}
}
