package inbound

import "time"

type RequestCodeRequest struct {
	Email string `json:"email"`
}

type RequestCodeResponse struct{}

func (RequestCodeResponse) Message() string {
	return "Verification code sent. Please check your email."
}

type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type VerifyCodeResponse struct {
	Email      string    `json:"email"`
	VerifiedAt time.Time `json:"verified_at"`
	Token      string    `json:"token"`
}

type CodeStatusResponse struct {
	Email             string    `json:"email"`
	Verified          bool      `json:"verified"`
	Attempts          int       `json:"attempts"`
	AttemptsRemaining int       `json:"attempts_remaining"`
	ExpiresAt         time.Time `json:"expires_at"`
	LastSentAt        time.Time `json:"last_sent_at"`
	CreatedAt         time.Time `json:"created_at"`
}
