// Package hash provides one-way digests for the secrets this service stores.
//
// Verification codes are persisted only as digests produced here; the store
// never sees plaintext. Bcrypt and Argon2id make each guess expensive, which
// is what actually defends a 6-digit space once the attempt limiter caps how
// many guesses are possible. HMAC-SHA256 serves keyed pseudonymization where
// per-guess cost does not matter.
package hash

// Hash digests a plaintext and later verifies a candidate against the digest.
type Hash interface {
	// Hash returns the one-way digest of plaintext.
	Hash(plaintext string) ([]byte, error)
	// Verify reports whether plaintext matches the digest. Implementations
	// compare in a way that does not leak the mismatch position.
	Verify(hashed, plaintext string) bool
}
