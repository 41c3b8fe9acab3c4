package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/goverify/internal/pkg/goerror"
	"github.com/shandysiswandi/goverify/internal/pkg/idempotency"
)

type ConsumeVerificationRequestInput struct {
	MessageID string
	Email     string `validate:"required,email"`
}

// ConsumeVerificationRequest handles code issuance commands arriving over the
// broker. Redeliveries are dropped through the idempotency tracker, business
// rejections are logged and acked, and only infrastructure failures propagate
// so the broker redelivers.
func (s *Usecase) ConsumeVerificationRequest(ctx context.Context, in ConsumeVerificationRequestInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeVerificationRequest")
	defer span.End()

	in.Email = normalizeEmail(in.Email)

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "message_id", in.MessageID, "error", err)
		return nil
	}

	key := "verification_request:" + in.MessageID
	err := s.idemp.Exec(ctx, key, func(ctx context.Context) error {
		return s.RequestCode(ctx, RequestCodeInput{Email: in.Email})
	})

	switch {
	case err == nil:
		return nil

	case errors.Is(err, idempotency.ErrAlreadyInProgress),
		errors.Is(err, idempotency.ErrAlreadyCompleted),
		errors.Is(err, idempotency.ErrAlreadyFailed):
		slog.InfoContext(ctx, "duplicate verification request dropped", "message_id", in.MessageID)
		return nil
	}

	var gerr *goerror.Error
	if errors.As(err, &gerr) && gerr.Type() != goerror.TypeServer {
		slog.WarnContext(ctx, "verification request rejected", "message_id", in.MessageID, "email", in.Email, "reason", gerr.Msg())

		// Pin the rejection so a redelivery of the same command is dropped
		// without touching the store again.
		if markErr := s.idemp.MarkFailed(ctx, key, time.Minute); markErr != nil {
			slog.ErrorContext(ctx, "failed to mark rejected request", "message_id", in.MessageID, "error", markErr)
		}

		return nil
	}

	slog.ErrorContext(ctx, "failed to process verification request", "message_id", in.MessageID, "error", err)

	return err
}
