// Package validator provides a small validation abstraction for request and
// domain structs.
//
// Business code depends on the Validator interface so validation can be
// shared and tested consistently; the go-playground/validator v10 adapter is
// the production implementation.
package validator

// Validator validates a struct against its declared rules.
type Validator interface {
	// Validate returns nil when data passes, or an error describing the
	// failing fields.
	Validate(data any) error
}
