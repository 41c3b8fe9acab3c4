package clock

import "time"

// Clocker abstracts time so callers can replace real time in tests.
//
// Every throttle, expiry, and attempt decision in this service is a comparison
// against "now"; depending on this interface instead of time.Now keeps those
// decisions deterministic under test.
type Clocker interface {
	Now() time.Time
}

// TimeClocker is the production clock implementation backed by time.Now.
type TimeClocker struct{}

// New returns a TimeClocker that reads the current system time.
func New() *TimeClocker {
	return &TimeClocker{}
}

// Now returns the current system time.
func (*TimeClocker) Now() time.Time {
	return time.Now()
}
