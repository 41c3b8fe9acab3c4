package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/casbin/casbin/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/goverify/internal/pkg/clock"
	"github.com/shandysiswandi/goverify/internal/pkg/config"
	"github.com/shandysiswandi/goverify/internal/pkg/goerror"
	"github.com/shandysiswandi/goverify/internal/pkg/hash"
	"github.com/shandysiswandi/goverify/internal/pkg/idempotency"
	"github.com/shandysiswandi/goverify/internal/pkg/instrument"
	"github.com/shandysiswandi/goverify/internal/pkg/jwt"
	"github.com/shandysiswandi/goverify/internal/pkg/otp"
	"github.com/shandysiswandi/goverify/internal/pkg/uid"
	"github.com/shandysiswandi/goverify/internal/pkg/validator"
	"github.com/shandysiswandi/goverify/internal/verification/entity"
)

type CodeIssuedEvent struct {
	ID         int64
	Email      string
	ExpiresAt  time.Time
	ResendAt   time.Time
	OccurredAt time.Time
}

type VerificationCompletedEvent struct {
	ID           int64
	Email        string
	VerifiedAt   time.Time
	AttemptsUsed int
}

type repoDB interface {
	FindByEmail(ctx context.Context, email string) (*entity.Verification, error)
	SaveNewCode(ctx context.Context, rec entity.Verification, resendCutoff time.Time) error
	IncrementAttempts(ctx context.Context, email, digest string, maxAttempts int) (int, error)
	MarkVerified(ctx context.Context, email, digest string, at time.Time) error
	DeleteByEmail(ctx context.Context, email string) error
}

type repoEmail interface {
	SendCode(ctx context.Context, email, code string, expiresAt time.Time) error
}

type repoMessaging interface {
	PublishCodeIssued(ctx context.Context, msg CodeIssuedEvent) error
	PublishVerificationCompleted(ctx context.Context, msg VerificationCompletedEvent) error
}

type Usecase struct {
	repoDB        repoDB
	repoEmail     repoEmail
	repoMessaging repoMessaging
	idemp         idempotency.Idempotency
	validator     validator.Validator
	cfg           config.Config
	codes         otp.Generator
	hasher        hash.Hash
	uid           uid.NumberID
	clock         clock.Clocker
	jwt           jwt.JWT
	ins           instrument.Instrumentation
	enforcer      *casbin.Enforcer
}

type Dependency struct {
	RepoDB        repoDB
	RepoEmail     repoEmail
	RepoMessaging repoMessaging
	Idempotency   idempotency.Idempotency
	Validator     validator.Validator
	Config        config.Config
	Codes         otp.Generator
	Hasher        hash.Hash
	UID           uid.NumberID
	Clock         clock.Clocker
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
	Enforcer      *casbin.Enforcer
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoEmail:     dep.RepoEmail,
		repoMessaging: dep.RepoMessaging,
		idemp:         dep.Idempotency,
		validator:     dep.Validator,
		cfg:           dep.Config,
		codes:         dep.Codes,
		hasher:        dep.Hasher,
		uid:           dep.UID,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
		enforcer:      dep.Enforcer,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("verification.usecase").Start(ctx, name)
}

// normalizeEmail canonicalizes an address so throttling, lookups, and
// conditional writes all key on the same value.
func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (s *Usecase) resendCooldown() time.Duration {
	cooldown := s.cfg.GetSecond("modules.verification.resend_cooldown_seconds")
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	return cooldown
}

func (s *Usecase) codeTTL() time.Duration {
	ttl := s.cfg.GetMinute("modules.verification.code_ttl_minutes")
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return ttl
}

func (s *Usecase) maxAttempts() int {
	maxAttempts := s.cfg.GetInt("modules.verification.max_attempts")
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return maxAttempts
}

func (s *Usecase) authenticatedAndAuthorized(ctx context.Context, obj, act string) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	ok, err := s.enforcer.Enforce(clm.Role, obj, act)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check authorization", "subject", clm.Subject, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !ok {
		return nil, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	return clm, nil
}
