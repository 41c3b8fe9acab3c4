package event

import "time"

const VerificationCompletedDestination string = "verification_completed"
const VerificationCompletedConsumerAudit string = "verification_completed_audit"

type VerificationCompletedMessage struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	VerifiedAt   time.Time `json:"verified_at"`
	AttemptsUsed int       `json:"attempts_used"`
}
