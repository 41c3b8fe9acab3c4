package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/goverify/internal/audit/entity"
)

type ConsumeVerificationCompletedInput struct {
	ID           int64  `validate:"required"`
	Email        string `validate:"required,email"`
	VerifiedAt   time.Time
	AttemptsUsed int
}

// ConsumeVerificationCompleted archives a completion event.
func (s *Usecase) ConsumeVerificationCompleted(ctx context.Context, in ConsumeVerificationCompletedInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeVerificationCompleted")
	defer span.End()

	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "dropping invalid verification completed event", "error", err)
		return nil
	}

	digest, err := s.hasher.Hash(in.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to pseudonymize email", "error", err)
		return nil
	}

	now := s.clock.Now()
	occurredAt := in.VerifiedAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	s.append(ctx, entity.Record{
		Event:       entity.EventCompleted,
		RecordID:    in.ID,
		EmailDigest: string(digest),
		OccurredAt:  occurredAt,
		ReceivedAt:  now,
		Details: map[string]any{
			"attempts_used": in.AttemptsUsed,
		},
	})

	return nil
}
