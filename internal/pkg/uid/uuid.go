package uid

import "github.com/google/uuid"

// UUID generates RFC 4122 UUID strings, preferring time-ordered v7.
type UUID struct{}

// NewUUID returns a UUID generator.
func NewUUID() *UUID {
	return &UUID{}
}

// Generate returns a new UUID string.
func (u *UUID) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		// entropy exhaustion only; v4 keeps ids flowing
		return uuid.NewString()
	}
	return id.String()
}
