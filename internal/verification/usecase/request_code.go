package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/goverify/internal/pkg/goerror"
	"github.com/shandysiswandi/goverify/internal/verification/entity"
)

type RequestCodeInput struct {
	Email string `validate:"required,email"`
}

// RequestCode issues a fresh verification code for an email address: it
// enforces the resend cooldown, persists only a digest of the code, and hands
// the plaintext to exactly one place, the delivery adapter. A record whose
// delivery fails is removed again so the store never holds a code nobody
// received.
func (s *Usecase) RequestCode(ctx context.Context, in RequestCodeInput) error {
	ctx, span := s.startSpan(ctx, "RequestCode")
	defer span.End()

	in.Email = normalizeEmail(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	now := s.clock.Now()
	cooldown := s.resendCooldown()

	current, err := s.repoDB.FindByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo find verification by email", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	var recordID int64
	if current != nil {
		if !current.CanResend(now, cooldown) {
			return goerror.NewRateLimited(
				"Please wait before requesting another code",
				current.ResendWait(now, cooldown),
			)
		}
		recordID = current.ID
	}
	if recordID == 0 {
		recordID = s.uid.Generate()
	}

	code, err := s.codes.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate verification code", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	digest, err := s.hasher.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash verification code", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	rec := entity.Verification{
		ID:         recordID,
		Email:      in.Email,
		CodeDigest: string(digest),
		ExpiresAt:  now.Add(s.codeTTL()),
		Attempts:   0,
		Verified:   false,
		LastSentAt: now,
		CreatedAt:  now,
	}

	// The write re-checks the cooldown against the stored row, so of two
	// racing requests exactly one lands.
	if err := s.repoDB.SaveNewCode(ctx, rec, now.Add(-cooldown)); err != nil {
		if errors.Is(err, goerror.ErrConflict) {
			slog.WarnContext(ctx, "concurrent issuance won the cooldown", "email", in.Email)

			wait := int(cooldown.Seconds())
			if winner, ferr := s.repoDB.FindByEmail(ctx, in.Email); ferr == nil && winner != nil {
				wait = winner.ResendWait(now, cooldown)
			}

			return goerror.NewRateLimited("Please wait before requesting another code", wait)
		}

		slog.ErrorContext(ctx, "failed to repo save verification code", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoEmail.SendCode(ctx, in.Email, code, rec.ExpiresAt); err != nil {
		slog.ErrorContext(ctx, "failed to deliver verification code", "email", in.Email, "error", err)

		if derr := s.repoDB.DeleteByEmail(ctx, in.Email); derr != nil {
			slog.ErrorContext(ctx, "failed to roll back undelivered verification", "email", in.Email, "error", derr)
		}

		return goerror.NewUnavailable(err, "Could not deliver the verification code, please try again")
	}

	if err := s.repoMessaging.PublishCodeIssued(ctx, CodeIssuedEvent{
		ID:         rec.ID,
		Email:      rec.Email,
		ExpiresAt:  rec.ExpiresAt,
		ResendAt:   now.Add(cooldown),
		OccurredAt: now,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish code issued event", "email", in.Email, "error", err)
	}

	return nil
}
