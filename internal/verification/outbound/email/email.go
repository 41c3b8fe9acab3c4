package email

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/codes"

	"github.com/shandysiswandi/goverify/internal/pkg/instrument"
	"github.com/shandysiswandi/goverify/internal/pkg/mail"
)

const codeSubject = "Your verification code"

const codeBody = "Your verification code is %s.\n\n" +
	"It expires at %s. If you did not request this code, you can ignore this message."

type Mail struct {
	client mail.Mail
	ins    instrument.Instrumentation
}

func New(client mail.Mail, ins instrument.Instrumentation) *Mail {
	return &Mail{client: client, ins: ins}
}

// SendCode delivers the plaintext code to its recipient. The caller waits on
// the result, so transient provider failures are retried only twice before
// they surface.
func (m *Mail) SendCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	ctx, span := m.ins.Tracer("verification.outbound.email").Start(ctx, "SendCode")
	defer span.End()

	msg := mail.Message{
		To:       email,
		Subject:  codeSubject,
		TextBody: fmt.Sprintf(codeBody, code, expiresAt.UTC().Format(time.RFC1123)),
	}

	b := retry.WithMaxRetries(2, retry.NewFibonacci(200*time.Millisecond))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := m.client.Send(ctx, msg); err != nil {
			return retry.RetryableError(err)
		}

		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
