package entity

import "time"

// Verification is the single persisted record per normalized email: the
// digest of the currently active code plus the counters that gate its use.
type Verification struct {
	ID         int64
	Email      string
	CodeDigest string // one-way digest, never the code itself
	ExpiresAt  time.Time
	Attempts   int
	Verified   bool
	LastSentAt time.Time
	CreatedAt  time.Time
}

// CanResend reports whether the cooldown since the last issuance has elapsed.
func (v Verification) CanResend(now time.Time, cooldown time.Duration) bool {
	return now.Sub(v.LastSentAt) >= cooldown
}

// ResendWait returns the whole seconds remaining before another code may be
// issued, rounded up and never below one while the throttle holds.
func (v Verification) ResendWait(now time.Time, cooldown time.Duration) int {
	remaining := cooldown - now.Sub(v.LastSentAt)
	if remaining <= 0 {
		return 0
	}

	seconds := int((remaining + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

// IsExpired reports whether the current code is past its expiry instant.
// Expiry is inclusive: a code is no longer verifiable at exactly ExpiresAt.
func (v Verification) IsExpired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

// AttemptsExhausted reports whether failed attempts reached the cap.
func (v Verification) AttemptsExhausted(maxAttempts int) bool {
	return v.Attempts >= maxAttempts
}

// AttemptsRemaining returns how many failed attempts are left, floored at zero.
func (v Verification) AttemptsRemaining(maxAttempts int) int {
	remaining := maxAttempts - v.Attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}
