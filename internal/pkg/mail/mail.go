// Package mail defines the contract for sending email.
//
// Use cases depend on the Mail interface and Message payload so the delivery
// mechanism stays swappable. Verification codes go to exactly one recipient;
// there is deliberately no Cc/Bcc surface here.
package mail

import (
	"context"
	"io"
)

// Message represents an email payload.
type Message struct {
	// From is an optional explicit sender; the implementation's default
	// applies when empty.
	From string
	// To is the recipient address.
	To string
	// Subject is the email subject line.
	Subject string
	// TextBody is the plain-text body; preferred when HTMLBody is empty.
	TextBody string
	// HTMLBody is the optional HTML body.
	HTMLBody string
}

// Mail abstracts an email provider (SMTP, third-party API, etc).
type Mail interface {
	io.Closer
	// Send dispatches the given message using the underlying provider.
	Send(ctx context.Context, msg Message) error
}
