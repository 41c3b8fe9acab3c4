package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/shandysiswandi/goverify/internal/pkg/goerror"
	"github.com/shandysiswandi/goverify/internal/pkg/jwt"
)

type VerifyCodeInput struct {
	Email string `validate:"required,email"`
	Code  string `validate:"required,len=6,numeric"`
}

type VerifyCodeOutput struct {
	Email      string
	VerifiedAt time.Time
	// Token is a short-lived signed proof of ownership for downstream services.
	Token string
}

// VerifyCode checks a submitted code against the stored digest. Outcomes are
// ordered so that expired and exhausted records are rejected before any
// comparison: an expired code costs no attempt, a locked record reveals
// nothing about the code.
func (s *Usecase) VerifyCode(ctx context.Context, in VerifyCodeInput) (*VerifyCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyCode")
	defer span.End()

	in.Email = normalizeEmail(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	rec, err := s.repoDB.FindByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("No verification pending for this email", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo find verification by email", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if rec.Verified {
		return nil, goerror.NewBusiness("Email already verified", goerror.CodeConflict)
	}

	now := s.clock.Now()
	if rec.IsExpired(now) {
		return nil, goerror.NewBusiness("Verification code has expired, request a new one", goerror.CodeGone)
	}

	maxAttempts := s.maxAttempts()
	if rec.AttemptsExhausted(maxAttempts) {
		return nil, goerror.NewBusiness("Too many failed attempts, request a new code", goerror.CodeLocked)
	}

	if !s.hasher.Verify(rec.CodeDigest, in.Code) {
		attempts, err := s.repoDB.IncrementAttempts(ctx, in.Email, rec.CodeDigest, maxAttempts)
		if errors.Is(err, goerror.ErrConflict) {
			// A concurrent attempt hit the cap, or the code was reissued
			// underneath us. Either way this guess is spent.
			return nil, goerror.NewBusiness("Too many failed attempts, request a new code", goerror.CodeLocked)
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo increment attempts", "email", in.Email, "error", err)
			return nil, goerror.NewServer(err)
		}

		return nil, goerror.NewBusinessData(
			"Invalid verification code",
			goerror.CodeInvalidCode,
			"attempts_remaining", strconv.Itoa(maxAttempts-attempts),
		)
	}

	token, err := s.jwt.Generate(in.Email, jwt.PurposeEmailVerification)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate proof token", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoDB.MarkVerified(ctx, in.Email, rec.CodeDigest, now); err != nil {
		if errors.Is(err, goerror.ErrConflict) {
			return nil, s.classifyVerifyConflict(ctx, in.Email)
		}

		slog.ErrorContext(ctx, "failed to repo mark verified", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoMessaging.PublishVerificationCompleted(ctx, VerificationCompletedEvent{
		ID:           rec.ID,
		Email:        rec.Email,
		VerifiedAt:   now,
		AttemptsUsed: rec.Attempts,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish verification completed event", "email", in.Email, "error", err)
	}

	return &VerifyCodeOutput{Email: in.Email, VerifiedAt: now, Token: token}, nil
}

// classifyVerifyConflict decides what a lost MarkVerified race actually
// means: a concurrent verify of the same code, or a reissue that retired the
// code generation this request matched against.
func (s *Usecase) classifyVerifyConflict(ctx context.Context, email string) error {
	rec, err := s.repoDB.FindByEmail(ctx, email)
	if err == nil && rec.Verified {
		return goerror.NewBusiness("Email already verified", goerror.CodeConflict)
	}
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo find verification by email", "email", email, "error", err)
	}

	return goerror.NewBusiness("Verification code has expired, request a new one", goerror.CodeGone)
}
