package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/goverify/internal/pkg/goerror"
)

type CodeStatusInput struct {
	Email string `validate:"required,email"`
}

// CodeStatusOutput exposes record metadata for operators. The digest is
// deliberately absent.
type CodeStatusOutput struct {
	Email             string
	Verified          bool
	Attempts          int
	AttemptsRemaining int
	ExpiresAt         time.Time
	LastSentAt        time.Time
	CreatedAt         time.Time
}

func (s *Usecase) CodeStatus(ctx context.Context, in CodeStatusInput) (*CodeStatusOutput, error) {
	ctx, span := s.startSpan(ctx, "CodeStatus")
	defer span.End()

	if _, err := s.authenticatedAndAuthorized(ctx, "verifications", "read"); err != nil {
		return nil, err
	}

	in.Email = normalizeEmail(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	rec, err := s.repoDB.FindByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("No verification found for this email", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo find verification by email", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &CodeStatusOutput{
		Email:             rec.Email,
		Verified:          rec.Verified,
		Attempts:          rec.Attempts,
		AttemptsRemaining: rec.AttemptsRemaining(s.maxAttempts()),
		ExpiresAt:         rec.ExpiresAt,
		LastSentAt:        rec.LastSentAt,
		CreatedAt:         rec.CreatedAt,
	}, nil
}
