package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/goverify/internal/audit/entity"
)

type ConsumeCodeIssuedInput struct {
	ID         int64  `validate:"required"`
	Email      string `validate:"required,email"`
	ExpiresAt  time.Time
	ResendAt   time.Time
	OccurredAt time.Time
}

// ConsumeCodeIssued archives an issuance event. Invalid events are dropped
// with a log line instead of an error, since redelivery can never repair
// them. The email is pseudonymized before anything is buffered.
func (s *Usecase) ConsumeCodeIssued(ctx context.Context, in ConsumeCodeIssuedInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeCodeIssued")
	defer span.End()

	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "dropping invalid code issued event", "error", err)
		return nil
	}

	digest, err := s.hasher.Hash(in.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to pseudonymize email", "error", err)
		return nil
	}

	now := s.clock.Now()
	if in.OccurredAt.IsZero() {
		in.OccurredAt = now
	}

	s.append(ctx, entity.Record{
		Event:       entity.EventCodeIssued,
		RecordID:    in.ID,
		EmailDigest: string(digest),
		OccurredAt:  in.OccurredAt,
		ReceivedAt:  now,
		Details: map[string]any{
			"expires_at": in.ExpiresAt,
			"resend_at":  in.ResendAt,
		},
	})

	return nil
}
