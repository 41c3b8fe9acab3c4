package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/goverify/internal/pkg/goerror"
)

type RevokeCodeInput struct {
	Email string `validate:"required,email"`
}

// RevokeCode removes the live verification record for an email, invalidating
// any outstanding code. Operator action for abuse response and support resets.
func (s *Usecase) RevokeCode(ctx context.Context, in RevokeCodeInput) error {
	ctx, span := s.startSpan(ctx, "RevokeCode")
	defer span.End()

	clm, err := s.authenticatedAndAuthorized(ctx, "verifications", "delete")
	if err != nil {
		return err
	}

	in.Email = normalizeEmail(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if _, err := s.repoDB.FindByEmail(ctx, in.Email); err != nil {
		if errors.Is(err, goerror.ErrNotFound) {
			return goerror.NewBusiness("No verification found for this email", goerror.CodeNotFound)
		}

		slog.ErrorContext(ctx, "failed to repo find verification by email", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoDB.DeleteByEmail(ctx, in.Email); err != nil {
		slog.ErrorContext(ctx, "failed to repo delete verification", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "verification revoked", "email", in.Email, "revoked_by", clm.Subject)

	return nil
}
