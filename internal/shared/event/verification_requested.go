package event

const VerificationRequestDestination string = "verification_request"
const VerificationRequestConsumerEngine string = "verification_request_engine"

// VerificationRequestMessage asks the engine to issue a code for an email.
// It never carries a code.
type VerificationRequestMessage struct {
	Email string `json:"email"`
}
