// Package otp generates the short numeric codes delivered to users.
//
// Codes are drawn from crypto/rand over the full decimal space for the
// configured width, so a 6-digit generator emits "000000" through "999999"
// with uniform probability. Codes carry no structure: they cannot be derived
// from time, counters, or any other observable state.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// MinDigits is the smallest supported code width.
	MinDigits = 4
	// MaxDigits is the largest supported code width.
	MaxDigits = 10
	// DefaultDigits is the width used when none is configured.
	DefaultDigits = 6
)

// Generator produces one-time numeric codes.
type Generator interface {
	// Generate returns a zero-padded decimal code of the generator's width.
	Generate() (string, error)
}

// NumericGenerator implements Generator with a fixed code width.
type NumericGenerator struct {
	digits int
	max    *big.Int
}

// NewNumeric constructs a NumericGenerator. Widths outside the supported
// range fall back to DefaultDigits.
func NewNumeric(digits int) *NumericGenerator {
	if digits < MinDigits || digits > MaxDigits {
		digits = DefaultDigits
	}

	max := big.NewInt(10)
	max.Exp(max, big.NewInt(int64(digits)), nil)

	return &NumericGenerator{digits: digits, max: max}
}

// Digits returns the code width.
func (g *NumericGenerator) Digits() int {
	return g.digits
}

// Generate returns a uniformly random, zero-padded decimal code.
func (g *NumericGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, g.max)
	if err != nil {
		return "", fmt.Errorf("otp: read entropy: %w", err)
	}

	return fmt.Sprintf("%0*d", g.digits, n.Int64()), nil
}
