package validator

import (
	"errors"
	"testing"
)

type requestCodePayload struct {
	Email string `validate:"required,email"`
}

type verifyCodePayload struct {
	Email string `validate:"required,email"`
	Code  string `validate:"required,otpcode"`
}

func TestValidateEmail(t *testing.T) {
	v, err := NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator() error = %v", err)
	}

	if err := v.Validate(requestCodePayload{Email: "user@example.com"}); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}

	for _, email := range []string{"", "not-an-email", "user@", "@example.com"} {
		err := v.Validate(requestCodePayload{Email: email})
		if err == nil {
			t.Fatalf("Validate(email=%q) = nil, want error", email)
		}

		var fields V10ValidationError
		if !errors.As(err, &fields) {
			t.Fatalf("Validate(email=%q) error type = %T, want V10ValidationError", email, err)
		}
		if _, ok := fields.Values()["email"]; !ok {
			t.Fatalf("Validate(email=%q) fields = %v, want email key", email, fields)
		}
	}
}

func TestValidateOTPCodeRule(t *testing.T) {
	v, err := NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator() error = %v", err)
	}

	valid := []string{"123456", "000000", "9999", "0123456789"}
	for _, code := range valid {
		if err := v.Validate(verifyCodePayload{Email: "u@example.com", Code: code}); err != nil {
			t.Fatalf("Validate(code=%q) error = %v, want nil", code, err)
		}
	}

	invalid := []string{"12345a", "123 456", "123", "12345678901", "12-456"}
	for _, code := range invalid {
		err := v.Validate(verifyCodePayload{Email: "u@example.com", Code: code})
		if err == nil {
			t.Fatalf("Validate(code=%q) = nil, want error", code)
		}

		var fields V10ValidationError
		if !errors.As(err, &fields) {
			t.Fatalf("Validate(code=%q) error type = %T, want V10ValidationError", code, err)
		}
		if _, ok := fields.Values()["code"]; !ok {
			t.Fatalf("Validate(code=%q) fields = %v, want code key", code, fields)
		}
	}
}
