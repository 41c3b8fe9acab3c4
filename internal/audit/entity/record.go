package entity

import "time"

const (
	EventCodeIssued = "verification_code_issued"
	EventCompleted  = "verification_completed"
)

// Record is one archived audit entry. The email is pseudonymized before the
// record is built, so archives can be correlated but never reversed into an
// address, and nothing here ever held a code.
type Record struct {
	Event       string         `json:"event"`
	RecordID    int64          `json:"record_id"`
	EmailDigest string         `json:"email_digest"`
	OccurredAt  time.Time      `json:"occurred_at"`
	ReceivedAt  time.Time      `json:"received_at"`
	Details     map[string]any `json:"details,omitempty"`
}
