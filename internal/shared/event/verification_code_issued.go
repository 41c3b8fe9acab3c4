package event

import "time"

const VerificationCodeIssuedDestination string = "verification_code_issued"
const VerificationCodeIssuedConsumerAudit string = "verification_code_issued_audit"

// VerificationCodeIssuedMessage announces that a code was generated and
// delivered. The code itself never leaves the engine.
type VerificationCodeIssuedMessage struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	ExpiresAt  time.Time `json:"expires_at"`
	ResendAt   time.Time `json:"resend_at"`
	OccurredAt time.Time `json:"occurred_at"`
}
